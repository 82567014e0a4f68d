package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bensuskins/command-center/internal/lists"
	"github.com/bensuskins/command-center/internal/models"
)

const (
	VehicleCollection     = "vehicles"
	MaintenanceCollection = "maintenanceRecords"
	registrationWarning   = 30 * 24 * time.Hour
)

var (
	ErrVehicleNotFound        = errors.New("vehicle not found")
	ErrInvalidVehicleType     = errors.New("invalid vehicle type")
	ErrInvalidMaintenanceType = errors.New("invalid maintenance type")
	ErrVehicleNameRequired    = errors.New("vehicle name is required")
)

type ReminderReason string

const (
	ReasonRegistrationExpired ReminderReason = "Registration expired"
	ReasonMaintenanceOverdue  ReminderReason = "Maintenance overdue"
)

type Reminder struct {
	Vehicle models.Vehicle            `json:"vehicle"`
	Record  *models.MaintenanceRecord `json:"record,omitempty"`
	Reason  ReminderReason            `json:"reason,omitempty"`
}

type VehicleService struct {
	vehicles *lists.List[models.Vehicle]
	records  *lists.List[models.MaintenanceRecord]

	mutex       sync.Mutex
	migratedIDs map[string]string
}

func NewVehicleService(vehicles *lists.List[models.Vehicle], records *lists.List[models.MaintenanceRecord]) *VehicleService {
	return &VehicleService{
		vehicles:    vehicles,
		records:     records,
		migratedIDs: make(map[string]string),
	}
}

func (service *VehicleService) Mode() lists.Mode {
	return service.vehicles.Mode()
}

func (service *VehicleService) Vehicles() []models.Vehicle {
	return service.vehicles.Items()
}

func (service *VehicleService) Records() []models.MaintenanceRecord {
	return service.records.Items()
}

func (service *VehicleService) SubscribeVehicles(fn func([]models.Vehicle)) func() {
	return service.vehicles.Subscribe(fn)
}

func (service *VehicleService) SubscribeRecords(fn func([]models.MaintenanceRecord)) func() {
	return service.records.Subscribe(fn)
}

func (service *VehicleService) Vehicle(id string) (models.Vehicle, bool) {
	return service.vehicles.Find(id)
}

func (service *VehicleService) AddVehicle(ctx context.Context, vehicle models.Vehicle) (models.Vehicle, error) {
	vehicle.Name = strings.TrimSpace(vehicle.Name)
	if vehicle.Name == "" {
		return models.Vehicle{}, ErrVehicleNameRequired
	}
	if !vehicle.Type.Valid() {
		return models.Vehicle{}, fmt.Errorf("%w: %q", ErrInvalidVehicleType, vehicle.Type)
	}

	created, err := service.vehicles.Insert(ctx, vehicle)
	if err != nil {
		return models.Vehicle{}, fmt.Errorf("adding vehicle: %w", err)
	}
	return created, nil
}

func (service *VehicleService) UpdateVehicle(ctx context.Context, id string, patch map[string]any) error {
	if raw, ok := patch["type"]; ok {
		vehicleType, _ := raw.(string)
		if !models.VehicleType(vehicleType).Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidVehicleType, raw)
		}
	}
	return service.vehicles.Update(ctx, id, patch)
}

// DeleteVehicle removes the vehicle together with its maintenance records.
func (service *VehicleService) DeleteVehicle(ctx context.Context, id string) error {
	for _, record := range service.records.Items() {
		if record.VehicleID != id {
			continue
		}
		if err := service.records.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("deleting maintenance for vehicle %s: %w", id, err)
		}
	}
	if err := service.vehicles.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting vehicle: %w", err)
	}
	return nil
}

// AddMaintenance logs a record and advances the vehicle's mileage when the
// record reports a higher reading.
func (service *VehicleService) AddMaintenance(ctx context.Context, record models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	vehicle, ok := service.vehicles.Find(record.VehicleID)
	if !ok {
		return models.MaintenanceRecord{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, record.VehicleID)
	}
	if !record.Type.Valid() {
		return models.MaintenanceRecord{}, fmt.Errorf("%w: %q", ErrInvalidMaintenanceType, record.Type)
	}

	created, err := service.records.Insert(ctx, record)
	if err != nil {
		return models.MaintenanceRecord{}, fmt.Errorf("adding maintenance record: %w", err)
	}

	if record.Mileage > vehicle.CurrentMileage {
		if err := service.vehicles.Update(ctx, vehicle.ID, map[string]any{"currentMileage": record.Mileage}); err != nil {
			return created, fmt.Errorf("advancing mileage: %w", err)
		}
	}
	return created, nil
}

func (service *VehicleService) UpdateMaintenance(ctx context.Context, id string, patch map[string]any) error {
	if raw, ok := patch["type"]; ok {
		maintenanceType, _ := raw.(string)
		if !models.MaintenanceType(maintenanceType).Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidMaintenanceType, raw)
		}
	}
	return service.records.Update(ctx, id, patch)
}

func (service *VehicleService) DeleteMaintenance(ctx context.Context, id string) error {
	return service.records.Delete(ctx, id)
}

// RecordsForVehicle returns the vehicle's records, newest first.
func (service *VehicleService) RecordsForVehicle(vehicleID string) []models.MaintenanceRecord {
	records := []models.MaintenanceRecord{}
	for _, record := range service.records.Items() {
		if record.VehicleID == vehicleID {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	return records
}

// Upcoming returns maintenance due after now, soonest first.
func (service *VehicleService) Upcoming(now time.Time) []Reminder {
	upcoming := []Reminder{}
	for _, record := range service.records.Items() {
		if record.NextDueDate == nil || !record.NextDueDate.After(now) {
			continue
		}
		vehicle, ok := service.vehicles.Find(record.VehicleID)
		if !ok {
			continue
		}
		upcoming = append(upcoming, Reminder{Vehicle: vehicle, Record: &record})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Record.NextDueDate.Before(*upcoming[j].Record.NextDueDate)
	})
	return upcoming
}

// Overdue lists expired registrations followed by maintenance whose next
// due date has passed.
func (service *VehicleService) Overdue(now time.Time) []Reminder {
	overdue := []Reminder{}
	for _, vehicle := range service.vehicles.Items() {
		if vehicle.RegistrationExpiry != nil && vehicle.RegistrationExpiry.Before(now) {
			overdue = append(overdue, Reminder{Vehicle: vehicle, Reason: ReasonRegistrationExpired})
		}
	}
	for _, record := range service.records.Items() {
		if record.NextDueDate == nil || !record.NextDueDate.Before(now) {
			continue
		}
		vehicle, ok := service.vehicles.Find(record.VehicleID)
		if !ok {
			continue
		}
		overdue = append(overdue, Reminder{Vehicle: vehicle, Record: &record, Reason: ReasonMaintenanceOverdue})
	}
	return overdue
}

func RegistrationExpiringSoon(vehicle models.Vehicle, now time.Time) bool {
	if vehicle.RegistrationExpiry == nil {
		return false
	}
	expiry := *vehicle.RegistrationExpiry
	return !expiry.Before(now) && !expiry.After(now.Add(registrationWarning))
}

// Migrate moves vehicles first, then their records with each vehicleId
// rewritten to the vehicle's remote id. The id map is kept so a retry after
// a failed record migration still rewrites references.
func (service *VehicleService) Migrate(ctx context.Context) error {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	ids, err := service.vehicles.MigrateWith(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrating vehicles: %w", err)
	}
	for localID, remoteID := range ids {
		service.migratedIDs[localID] = remoteID
	}

	_, err = service.records.MigrateWith(ctx, func(record models.MaintenanceRecord) models.MaintenanceRecord {
		if remoteID, ok := service.migratedIDs[record.VehicleID]; ok {
			record.VehicleID = remoteID
		}
		return record
	})
	if err != nil {
		return fmt.Errorf("migrating maintenance records: %w", err)
	}
	return nil
}
