package model

import "github.com/lib/pq"

// VehicleDetail is the autos vertical extension of a listing
type VehicleDetail struct {
	ListingID     string  `json:"listing_id" gorm:"type:uuid;primaryKey"`
	VehicleTypeID *string `json:"vehicle_type_id" gorm:"type:uuid"`
	BrandID       *string `json:"brand_id" gorm:"type:uuid"`
	ModelID       *string `json:"model_id" gorm:"type:uuid"`
	Year          *int    `json:"year"`
	Mileage       *int    `json:"mileage"`
	Transmission  *string `json:"transmission" gorm:"type:varchar(40)"`
	FuelType      *string `json:"fuel_type" gorm:"type:varchar(40)"`
	BodyType      *string `json:"body_type" gorm:"type:varchar(40)"`
	Color         *string `json:"color" gorm:"type:varchar(40)"`
	Condition     *string `json:"condition" gorm:"type:varchar(40)"`
}

func (VehicleDetail) TableName() string { return "listings_vehicles" }

// PropertyDetail is the properties vertical extension of a listing
type PropertyDetail struct {
	ListingID      string         `json:"listing_id" gorm:"type:uuid;primaryKey"`
	PropertyType   *string        `json:"property_type" gorm:"type:varchar(60)"`
	Bedrooms       *int           `json:"bedrooms"`
	Bathrooms      *int           `json:"bathrooms"`
	TotalArea      *float64       `json:"total_area"`
	BuiltArea      *float64       `json:"built_area"`
	ParkingSpaces  *int           `json:"parking_spaces"`
	Floor          *int           `json:"floor"`
	BuildingFloors *int           `json:"building_floors"`
	Furnished      *bool          `json:"furnished"`
	PetFriendly    *bool          `json:"pet_friendly"`
	Features       pq.StringArray `json:"features" gorm:"type:text[]"`
	Amenities      pq.StringArray `json:"amenities" gorm:"type:text[]"`
}

func (PropertyDetail) TableName() string { return "listings_properties" }

// StoreDetail is the stores vertical extension of a listing
type StoreDetail struct {
	ListingID         string  `json:"listing_id" gorm:"type:uuid;primaryKey"`
	ProductCategory   *string `json:"product_category" gorm:"type:varchar(80)"`
	Brand             *string `json:"brand" gorm:"type:varchar(80)"`
	Condition         *string `json:"condition" gorm:"type:varchar(40)"`
	SKU               *string `json:"sku" gorm:"column:sku;type:varchar(100)"`
	Stock             *int    `json:"stock"`
	ShippingAvailable *bool   `json:"shipping_available"`
}

func (StoreDetail) TableName() string { return "listings_stores" }

// FoodDetail is the food vertical extension of a listing
type FoodDetail struct {
	ListingID         string  `json:"listing_id" gorm:"type:uuid;primaryKey"`
	CuisineType       *string `json:"cuisine_type" gorm:"type:varchar(80)"`
	ServingSize       *string `json:"serving_size" gorm:"type:varchar(80)"`
	PrepTimeMinutes   *int    `json:"prep_time_minutes"`
	IsVegetarian      *bool   `json:"is_vegetarian"`
	IsVegan           *bool   `json:"is_vegan"`
	DeliveryAvailable *bool   `json:"delivery_available"`
}

func (FoodDetail) TableName() string { return "listings_food" }
