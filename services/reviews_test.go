package services

import (
	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

func (s *ServiceSuite) review(rating int) *models.Review {
	order := s.newOrder()
	s.deliver(order)
	r, err := s.svc.CreateReview(s.ctx, s.customer, ReviewInput{OrderID: order.ID, Rating: rating, Review: "good food"})
	s.Require().NoError(err)
	return r
}

func (s *ServiceSuite) TestReviewsDriveRestaurantRating() {
	s.review(5)
	second := s.review(2)

	r := s.reloadRestaurant()
	s.InDelta(3.5, r.Rating, 1e-9)
	s.Equal(int64(2), r.TotalRatings)

	_, err := s.svc.SetReviewVisibility(s.ctx, second.ID, false)
	s.Require().NoError(err)
	r = s.reloadRestaurant()
	s.InDelta(5.0, r.Rating, 1e-9)
	s.Equal(int64(1), r.TotalRatings)

	page, err := s.svc.ListRestaurantReviews(s.ctx, s.restaurant.ID, PageQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), page.Total)

	_, err = s.svc.SetReviewVisibility(s.ctx, second.ID, true)
	s.Require().NoError(err)
	rating := 4
	_, err = s.svc.UpdateReview(s.ctx, s.customer, second.ID, ReviewUpdate{Rating: &rating})
	s.Require().NoError(err)
	s.InDelta(4.5, s.reloadRestaurant().Rating, 1e-9)
}

func (s *ServiceSuite) TestReviewRules() {
	placed := s.newOrder()
	_, err := s.svc.CreateReview(s.ctx, s.customer, ReviewInput{OrderID: placed.ID, Rating: 4, Review: "too early"})
	s.ErrorIs(err, apperr.ErrValidation)

	first := s.review(4)
	_, err = s.svc.CreateReview(s.ctx, s.customer, ReviewInput{OrderID: first.OrderID, Rating: 1, Review: "again"})
	s.ErrorIs(err, apperr.ErrConflict)

	_, err = s.svc.CreateReview(s.ctx, s.owner, ReviewInput{OrderID: first.OrderID, Rating: 5, Review: "self"})
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.CreateReview(s.ctx, s.customer, ReviewInput{OrderID: first.OrderID, Rating: 6, Review: "off scale"})
	s.ErrorIs(err, apperr.ErrValidation)

	text := "edited"
	_, err = s.svc.UpdateReview(s.ctx, s.owner, first.ID, ReviewUpdate{Review: &text})
	s.ErrorIs(err, apperr.ErrForbidden)

	var count int64
	s.Require().NoError(s.db.Model(&models.Review{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *ServiceSuite) TestOwnerRepliesToReview() {
	r := s.review(3)

	_, err := s.svc.ReplyToReview(s.ctx, s.customer, r.ID, "thanks")
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.svc.ReplyToReview(s.ctx, s.owner, r.ID, "")
	s.ErrorIs(err, apperr.ErrValidation)

	replied, err := s.svc.ReplyToReview(s.ctx, s.owner, r.ID, "Thanks, we will do better")
	s.Require().NoError(err)
	s.Equal("Thanks, we will do better", replied.Reply.Content)
	s.NotNil(replied.Reply.Timestamp)

	var stored models.Review
	s.Require().NoError(s.db.First(&stored, r.ID).Error)
	s.Equal("Thanks, we will do better", stored.Reply.Content)
}
