package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
)

// FuelType is the engine fuel of a vehicle.
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelOther    FuelType = "other"
)

// Valid reports whether f is a known fuel type.
func (f FuelType) Valid() bool {
	switch f {
	case FuelGasoline, FuelDiesel, FuelHybrid, FuelElectric, FuelOther:
		return true
	}
	return false
}

// Transmission is the transmission type of a vehicle.
type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
	TransmissionCVT       Transmission = "cvt"
	TransmissionOther     Transmission = "other"
)

// Valid reports whether t is a known transmission type.
func (t Transmission) Valid() bool {
	switch t {
	case TransmissionManual, TransmissionAutomatic, TransmissionCVT, TransmissionOther:
		return true
	}
	return false
}

const minVehicleYear = 1900

// ServiceRecord is one entry of a vehicle's service history.
type ServiceRecord struct {
	Date             time.Time  `json:"date"`
	Description      string     `json:"description"`
	Mileage          int        `json:"mileage"`
	Cost             float64    `json:"cost,omitempty"`
	PerformedBy      *uuid.UUID `json:"performed_by,omitempty"`
	ServiceRequestID *uuid.UUID `json:"service_request_id,omitempty"`
}

// Vehicle is a car owned by a single client.
type Vehicle struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Make                  string
	Model                 string
	Year                  int
	Color                 string
	EngineSize            string
	FuelType              FuelType
	TransmissionType      Transmission
	Mileage               int
	LicensePlate          string
	VIN                   *string
	LastServiceDate       *time.Time
	NextServiceDue        *time.Time
	InsuranceCompany      string
	InsurancePolicyNumber string
	Notes                 string
	ServiceHistory        []ServiceRecord
	IsActive              bool
	UpdatedAt             time.Time
	CreatedAt             time.Time

	// Owner is only populated by location-aware queries.
	Owner *User
}

// InitMeta initializes the vehicle metadata including ID and timestamps.
func (v *Vehicle) InitMeta() {
	v.ID = uuid.New()
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.ServiceHistory == nil {
		v.ServiceHistory = []ServiceRecord{}
	}
}

// Normalize trims identifiers and upper-cases the plate and VIN.
func (v *Vehicle) Normalize() {
	v.Make = strings.TrimSpace(v.Make)
	v.Model = strings.TrimSpace(v.Model)
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	if v.VIN != nil {
		vin := strings.ToUpper(strings.TrimSpace(*v.VIN))
		if vin == "" {
			v.VIN = nil
		} else {
			v.VIN = &vin
		}
	}
}

// Validate checks attribute ranges relative to now.
func (v *Vehicle) Validate(now time.Time) error {
	fields := map[string]string{}
	if v.Make == "" {
		fields["make"] = "is required"
	}
	if v.Model == "" {
		fields["model"] = "is required"
	}
	if v.LicensePlate == "" {
		fields["license_plate"] = "is required"
	}
	if v.Year < minVehicleYear || v.Year > now.Year()+1 {
		fields["year"] = "is out of range"
	}
	if v.FuelType != "" && !v.FuelType.Valid() {
		fields["fuel_type"] = "is invalid"
	}
	if v.TransmissionType != "" && !v.TransmissionType.Valid() {
		fields["transmission_type"] = "is invalid"
	}
	if v.Mileage < 0 {
		fields["mileage"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &apperror.ValidationError{Message: "the given data was invalid", Fields: fields}
	}
	return nil
}
