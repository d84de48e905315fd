package services

import (
	"context"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/policy"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type PartnerInput struct {
	VehicleType   models.VehicleType        `json:"vehicle_type"`
	VehicleNumber string                    `json:"vehicle_number"`
	LicenseNumber string                    `json:"license_number"`
	Documents     models.PartnerDocuments   `json:"documents"`
	BankDetails   models.PartnerBankDetails `json:"bank_details"`
	Location      *Location                 `json:"location"`
	WorkingHours  []models.WorkingDay       `json:"working_hours"`
}

// RegisterPartner creates the delivery profile for the acting user. It starts unverified and
// off duty.
func (s *Service) RegisterPartner(ctx context.Context, actor models.Actor, in PartnerInput) (*models.DeliveryPartner, error) {
	if actor.Role != models.RoleDeliveryPartner {
		return nil, apperr.Forbidden("only delivery-partner accounts can register a delivery profile")
	}
	p := &models.DeliveryPartner{
		UserID:        actor.UserID,
		VehicleType:   in.VehicleType,
		VehicleNumber: in.VehicleNumber,
		LicenseNumber: in.LicenseNumber,
		Documents:     datatypes.NewJSONType(in.Documents),
		BankDetails:   datatypes.NewJSONType(in.BankDetails),
		WorkingHours:  datatypes.NewJSONSlice(in.WorkingHours),
	}
	if in.Location != nil {
		if err := models.Validate(in.Location); err != nil {
			return nil, err
		}
		p.CurrentLocation = datatypes.NewJSONType(models.NewGeoPoint(in.Location.Lng, in.Location.Lat))
	}
	if err := validatePartner(p); err != nil {
		return nil, err
	}

	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.DeliveryPartner{}).Where("user_id = ?", actor.UserID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("delivery profile already exists for this user")
		}
		if err := ensureUniqueVehicle(tx, 0, p.VehicleNumber, p.LicenseNumber); err != nil {
			return err
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info().Uint("delivery_partner_id", p.ID).Uint("user_id", actor.UserID).Msg("delivery partner registered")
	return p, nil
}

func validatePartner(p *models.DeliveryPartner) error {
	if err := models.Validate(p); err != nil {
		return err
	}
	if err := models.Validate(p.Documents.Data()); err != nil {
		return err
	}
	return models.Validate(p.BankDetails.Data())
}

func ensureUniqueVehicle(tx *gorm.DB, selfID uint, vehicleNumber, licenseNumber string) error {
	var clash int64
	err := tx.Model(&models.DeliveryPartner{}).
		Where("id <> ? AND (vehicle_number = ? OR license_number = ?)", selfID, vehicleNumber, licenseNumber).
		Count(&clash).Error
	if err != nil {
		return err
	}
	if clash > 0 {
		return apperr.Conflict("vehicle or license number already registered")
	}
	return nil
}

func (s *Service) partner(ctx context.Context, id uint) (*models.DeliveryPartner, error) {
	var p models.DeliveryPartner
	if err := s.db(ctx).Preload("User").First(&p, id).Error; err != nil {
		return nil, apperr.FromDB(err, "delivery partner")
	}
	return &p, nil
}

// ownedPartner loads a partner profile the actor is allowed to manage: its own, or any for admin.
func (s *Service) ownedPartner(ctx context.Context, actor models.Actor, id uint) (*models.DeliveryPartner, error) {
	p, err := s.partner(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, p.UserID, policy.DeliveryPartner); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPartner(ctx context.Context, actor models.Actor, id uint) (*models.DeliveryPartner, error) {
	return s.ownedPartner(ctx, actor, id)
}

func (s *Service) MyPartner(ctx context.Context, actor models.Actor) (*models.DeliveryPartner, error) {
	var p models.DeliveryPartner
	if err := s.db(ctx).Preload("User").Where("user_id = ?", actor.UserID).First(&p).Error; err != nil {
		return nil, apperr.FromDB(err, "delivery partner profile")
	}
	return &p, nil
}

type PartnerUpdate struct {
	VehicleType   *models.VehicleType        `json:"vehicle_type"`
	VehicleNumber *string                    `json:"vehicle_number"`
	LicenseNumber *string                    `json:"license_number"`
	Documents     *models.PartnerDocuments   `json:"documents"`
	BankDetails   *models.PartnerBankDetails `json:"bank_details"`
	WorkingHours  *[]models.WorkingDay       `json:"working_hours"`
}

// UpdatePartner changes profile fields only. Availability, active order and totals are owned by
// the order flow.
func (s *Service) UpdatePartner(ctx context.Context, actor models.Actor, id uint, in PartnerUpdate) (*models.DeliveryPartner, error) {
	p, err := s.ownedPartner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.VehicleType != nil {
		p.VehicleType = *in.VehicleType
	}
	if in.VehicleNumber != nil {
		p.VehicleNumber = *in.VehicleNumber
	}
	if in.LicenseNumber != nil {
		p.LicenseNumber = *in.LicenseNumber
	}
	if in.Documents != nil {
		p.Documents = datatypes.NewJSONType(*in.Documents)
	}
	if in.BankDetails != nil {
		p.BankDetails = datatypes.NewJSONType(*in.BankDetails)
	}
	if in.WorkingHours != nil {
		p.WorkingHours = datatypes.NewJSONSlice(*in.WorkingHours)
	}
	if err := validatePartner(p); err != nil {
		return nil, err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueVehicle(tx, p.ID, p.VehicleNumber, p.LicenseNumber); err != nil {
			return err
		}
		return tx.Model(p).
			Select("vehicle_type", "vehicle_number", "license_number", "documents", "bank_details", "working_hours").
			Updates(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateLocation(ctx context.Context, actor models.Actor, id uint, loc Location) (*models.DeliveryPartner, error) {
	if err := models.Validate(loc); err != nil {
		return nil, err
	}
	p, err := s.ownedPartner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p.CurrentLocation = datatypes.NewJSONType(models.NewGeoPoint(loc.Lng, loc.Lat))
	if err := s.db(ctx).Model(p).Update("current_location", p.CurrentLocation).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// TogglePartnerAvailability flips on/off duty. Going on duty with an active order is a conflict.
func (s *Service) TogglePartnerAvailability(ctx context.Context, actor models.Actor, id uint) (*models.DeliveryPartner, error) {
	p, err := s.ownedPartner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Aggregates.MutatePartner(tx, p.ID, func(dp *models.DeliveryPartner) error {
			return dp.ToggleAvailability()
		})
	})
	if err != nil {
		return nil, err
	}
	return s.partner(ctx, p.ID)
}

type PartnerStats struct {
	DeliveryPartnerID uint                   `json:"delivery_partner_id"`
	TotalDeliveries   int64                  `json:"total_deliveries"`
	TotalEarnings     float64                `json:"total_earnings"`
	AverageRating     float64                `json:"average_rating"`
	TotalRatings      int                    `json:"total_ratings"`
	RecentRatings     []models.PartnerRating `json:"recent_ratings"`
	ActiveOrderID     *uint                  `json:"active_order_id"`
	IsAvailable       bool                   `json:"is_available"`
}

const recentRatings = 5

func (s *Service) PartnerStats(ctx context.Context, actor models.Actor, id uint) (*PartnerStats, error) {
	p, err := s.ownedPartner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	recent := []models.PartnerRating(p.Ratings)
	if len(recent) > recentRatings {
		recent = recent[len(recent)-recentRatings:]
	}
	return &PartnerStats{
		DeliveryPartnerID: p.ID,
		TotalDeliveries:   p.TotalDeliveries,
		TotalEarnings:     p.TotalEarnings,
		AverageRating:     p.AverageRating,
		TotalRatings:      len(p.Ratings),
		RecentRatings:     recent,
		ActiveOrderID:     p.ActiveOrderID,
		IsAvailable:       p.IsAvailable,
	}, nil
}

type PartnerFilter struct {
	PageQuery
	IsAvailable *bool  `form:"is_available"`
	IsVerified  *bool  `form:"is_verified"`
	VehicleType string `form:"vehicle_type"`
}

func (s *Service) ListPartners(ctx context.Context, f PartnerFilter) (*Page[models.DeliveryPartner], error) {
	q := s.db(ctx).Model(&models.DeliveryPartner{}).Order("created_at desc, id desc")
	if f.IsAvailable != nil {
		q = q.Where("is_available = ?", *f.IsAvailable)
	}
	if f.IsVerified != nil {
		q = q.Where("is_verified = ?", *f.IsVerified)
	}
	if f.VehicleType != "" {
		q = q.Where("vehicle_type = ?", f.VehicleType)
	}
	return paginate[models.DeliveryPartner](q, f.PageQuery, "User")
}

// VerifyPartner sets the verified flag. Only verified partners can take orders.
func (s *Service) VerifyPartner(ctx context.Context, id uint, verified bool) (*models.DeliveryPartner, error) {
	res := s.db(ctx).Model(&models.DeliveryPartner{}).Where("id = ?", id).Update("is_verified", verified)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("delivery partner not found")
	}
	return s.partner(ctx, id)
}
