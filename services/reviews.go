package services

import (
	"context"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/policy"

	"gorm.io/gorm"
)

type ReviewInput struct {
	OrderID uint   `json:"order_id" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Review  string `json:"review" validate:"required,max=1000"`
}

// CreateReview lets the customer of a delivered order review its restaurant once.
func (s *Service) CreateReview(ctx context.Context, actor models.Actor, in ReviewInput) (*models.Review, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	var order models.Order
	if err := s.db(ctx).First(&order, in.OrderID).Error; err != nil {
		return nil, apperr.FromDB(err, "order")
	}
	if actor.Role != models.RoleCustomer || order.CustomerID != actor.UserID {
		return nil, apperr.Forbidden("only the customer who placed the order can review it")
	}
	if order.OrderStatus != models.StatusDelivered {
		return nil, apperr.Validation("only delivered orders can be reviewed")
	}

	review := &models.Review{
		UserID:       actor.UserID,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Rating:       in.Rating,
		Review:       in.Review,
		IsVisible:    true,
	}
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Review{}).Where("order_id = ?", order.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("order %d has already been reviewed", order.ID)
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return s.Aggregates.RecomputeRestaurantRating(tx, review.RestaurantID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *Service) review(ctx context.Context, id uint) (*models.Review, error) {
	var r models.Review
	if err := s.db(ctx).First(&r, id).Error; err != nil {
		return nil, apperr.FromDB(err, "review")
	}
	return &r, nil
}

type ReviewUpdate struct {
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Review *string `json:"review" validate:"omitempty,min=1,max=1000"`
}

func (s *Service) UpdateReview(ctx context.Context, actor models.Actor, id uint, in ReviewUpdate) (*models.Review, error) {
	if err := models.Validate(in); err != nil {
		return nil, err
	}
	r, err := s.review(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, r.UserID, policy.Review); err != nil {
		return nil, err
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if in.Review != nil {
		r.Review = *in.Review
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(r).Select("rating", "review").Updates(r).Error; err != nil {
			return err
		}
		return s.Aggregates.RecomputeRestaurantRating(tx, r.RestaurantID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ReplyToReview stores the restaurant owner's public reply.
func (s *Service) ReplyToReview(ctx context.Context, actor models.Actor, id uint, content string) (*models.Review, error) {
	if content == "" || len(content) > 1000 {
		return nil, apperr.Validation("reply must be between 1 and 1000 characters")
	}
	r, err := s.review(ctx, id)
	if err != nil {
		return nil, err
	}
	ownerID, err := s.restaurantOwner(s.db(ctx), r.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, ownerID, policy.ReviewReply); err != nil {
		return nil, err
	}
	now := s.now()
	r.Reply = models.ReviewReply{Content: content, Timestamp: &now}
	if err := s.db(ctx).Model(r).Select("reply_content", "reply_timestamp").Updates(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// SetReviewVisibility hides or shows a review; the restaurant rating follows.
func (s *Service) SetReviewVisibility(ctx context.Context, id uint, visible bool) (*models.Review, error) {
	r, err := s.review(ctx, id)
	if err != nil {
		return nil, err
	}
	r.IsVisible = visible
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(r).Update("is_visible", visible).Error; err != nil {
			return err
		}
		return s.Aggregates.RecomputeRestaurantRating(tx, r.RestaurantID)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) ListRestaurantReviews(ctx context.Context, restaurantID uint, pq PageQuery) (*Page[models.Review], error) {
	if _, err := s.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	q := s.db(ctx).Model(&models.Review{}).
		Where("restaurant_id = ? AND is_visible = ?", restaurantID, true).
		Order("created_at desc, id desc")
	return paginate[models.Review](q, pq)
}
