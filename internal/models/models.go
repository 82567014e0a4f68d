package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID          string    `json:"id"`
	OIDCSubject string    `json:"-"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type GroceryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (item GroceryItem) EntityID() string { return item.ID }

func (item GroceryItem) WithEntityID(id string) GroceryItem {
	item.ID = id
	return item
}

type VehicleType string

const (
	VehicleTypeCar     VehicleType = "car"
	VehicleTypeTruck   VehicleType = "truck"
	VehicleTypeTrailer VehicleType = "trailer"
)

func (vehicleType VehicleType) Valid() bool {
	switch vehicleType {
	case VehicleTypeCar, VehicleTypeTruck, VehicleTypeTrailer:
		return true
	}
	return false
}

type Vehicle struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Type               VehicleType `json:"type"`
	Make               string      `json:"make"`
	Model              string      `json:"model"`
	Year               int         `json:"year"`
	CurrentMileage     int         `json:"currentMileage"`
	LicensePlate       string      `json:"licensePlate"`
	RegistrationExpiry *time.Time  `json:"registrationExpiry,omitempty"`
	CreatedAt          string      `json:"createdAt,omitempty"`
	UpdatedAt          string      `json:"updatedAt,omitempty"`
}

func (vehicle Vehicle) EntityID() string { return vehicle.ID }

func (vehicle Vehicle) WithEntityID(id string) Vehicle {
	vehicle.ID = id
	return vehicle
}

type MaintenanceType string

const (
	MaintenanceOilChange    MaintenanceType = "oil_change"
	MaintenanceTireRotation MaintenanceType = "tire_rotation"
	MaintenanceRegistration MaintenanceType = "registration"
	MaintenanceOther        MaintenanceType = "other"
)

func (maintenanceType MaintenanceType) Valid() bool {
	switch maintenanceType {
	case MaintenanceOilChange, MaintenanceTireRotation, MaintenanceRegistration, MaintenanceOther:
		return true
	}
	return false
}

type MaintenanceRecord struct {
	ID             string          `json:"id"`
	VehicleID      string          `json:"vehicleId"`
	Type           MaintenanceType `json:"type"`
	Date           time.Time       `json:"date"`
	Mileage        int             `json:"mileage"`
	Description    string          `json:"description"`
	Cost           *float64        `json:"cost,omitempty"`
	Location       string          `json:"location,omitempty"`
	NextDueDate    *time.Time      `json:"nextDueDate,omitempty"`
	NextDueMileage *int            `json:"nextDueMileage,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

func (record MaintenanceRecord) EntityID() string { return record.ID }

func (record MaintenanceRecord) WithEntityID(id string) MaintenanceRecord {
	record.ID = id
	return record
}

type OrderLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Restaurant struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Cuisine      string      `json:"cuisine"`
	Phone        string      `json:"phone,omitempty"`
	Website      string      `json:"website,omitempty"`
	DeliveryApps []string    `json:"deliveryApps"`
	OrderLinks   []OrderLink `json:"orderLinks"`
	Favorite     bool        `json:"favorite"`
	Notes        string      `json:"notes,omitempty"`
	Rating       *float64    `json:"rating,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
}

func (restaurant Restaurant) EntityID() string { return restaurant.ID }

func (restaurant Restaurant) WithEntityID(id string) Restaurant {
	restaurant.ID = id
	return restaurant
}

type Recipe struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PrepTime     int       `json:"prepTime"`
	CookTime     int       `json:"cookTime"`
	Servings     int       `json:"servings"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Tags         []string  `json:"tags"`
	ImageURL     *string   `json:"imageUrl,omitempty"`
	Favorite     bool      `json:"favorite"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EventDateTime holds either Date (all-day, "2006-01-02") or DateTime
// (RFC3339 with offset). An event never carries both.
type EventDateTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type CalendarEvent struct {
	ID          string        `json:"id"`
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	Start       EventDateTime `json:"start"`
	End         EventDateTime `json:"end"`
	ColorID     string        `json:"colorId,omitempty"`
	HTMLLink    string        `json:"htmlLink,omitempty"`
	Source      string        `json:"source,omitempty"`
}

type ICalSubscription struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	ColorID       *string    `json:"colorId,omitempty"`
	CachedData    *string    `json:"-"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type TokenScope string

const (
	ScopeAIProxy      TokenScope = "ai-proxy"
	ScopeCalendarFeed TokenScope = "calendar-feed"
)

func (scope TokenScope) Valid() bool {
	return scope == ScopeAIProxy || scope == ScopeCalendarFeed
}

// APIToken authorizes machine callers for a single scope. Only the SHA-256
// hash of the raw token is stored.
type APIToken struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	TokenHash       string     `json:"-"`
	Scope           TokenScope `json:"scope"`
	CreatedByUserID string     `json:"createdByUserId"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (token APIToken) Expired(now time.Time) bool {
	return token.ExpiresAt != nil && !token.ExpiresAt.After(now)
}
