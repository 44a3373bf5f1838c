package model

import "time"

// SubscriptionPlan carries the quota limits object read by the plan limit resolver
type SubscriptionPlan struct {
	ID           string  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VerticalID   string  `json:"vertical_id" gorm:"type:uuid;index"`
	PlanKey      string  `json:"plan_key" gorm:"type:varchar(60);index;not null"`
	Name         string  `json:"name" gorm:"type:varchar(120)"`
	Currency     string  `json:"currency" gorm:"type:varchar(12);default:'CLP'"`
	PriceMonthly float64 `json:"price_monthly" gorm:"default:0"`
	Limits       string  `json:"limits" gorm:"type:jsonb;not null;default:'{}'"`
	IsActive     bool    `json:"is_active" gorm:"default:true"`
}

// Subscription links an owner to a plan for one vertical
type Subscription struct {
	ID                 string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID             string     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_user_vertical"`
	VerticalID         string     `json:"vertical_id" gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_user_vertical"`
	PlanID             string     `json:"plan_id" gorm:"type:uuid;not null"`
	Status             string     `json:"status" gorm:"type:varchar(20);index;not null"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end" gorm:"default:false"`
	Metadata           string     `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
}

// ListingBoost is a paid promotion window for a listing
type ListingBoost struct {
	ID              string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ListingID       string     `json:"listing_id" gorm:"type:uuid;index;not null"`
	UserID          *string    `json:"user_id" gorm:"type:uuid"`
	Status          string     `json:"status" gorm:"type:varchar(20);index;not null"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	PaymentID       *string    `json:"payment_id" gorm:"type:varchar(80)"`
	PaymentAmount   *float64   `json:"payment_amount"`
	PaymentCurrency *string    `json:"payment_currency" gorm:"type:varchar(12)"`
	Metadata        string     `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
}

// Payment records a gateway payment once per external id
type Payment struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         string    `json:"user_id" gorm:"type:uuid;index;not null"`
	SubscriptionID *string   `json:"subscription_id" gorm:"type:uuid"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency" gorm:"type:varchar(12)"`
	Status         string    `json:"status" gorm:"type:varchar(20)"`
	PaymentMethod  string    `json:"payment_method" gorm:"type:varchar(40)"`
	ExternalID     string    `json:"external_id" gorm:"type:varchar(80);uniqueIndex;not null"`
	Description    string    `json:"description" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&Vertical{},
		&Region{},
		&Commune{},
		&PublicProfile{},
		&Listing{},
		&VehicleDetail{},
		&PropertyDetail{},
		&StoreDetail{},
		&FoodDetail{},
		&Image{},
		&Document{},
		&ListingMetrics{},
		&SubscriptionPlan{},
		&Subscription{},
		&ListingBoost{},
		&Payment{},
	}
}
