package handlers

import (
	"net/http"
	"time"

	"github.com/bensuskins/command-center/internal/models"
	"github.com/bensuskins/command-center/internal/services"
	"github.com/go-chi/chi/v5"
)

type VehicleHandler struct {
	vehicleService *services.VehicleService
	now            func() time.Time
}

func NewVehicleHandler(vehicleService *services.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService, now: time.Now}
}

type vehicleListResponse struct {
	Mode     string           `json:"mode"`
	Vehicles []models.Vehicle `json:"vehicles"`
}

func (handler *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vehicleListResponse{
		Mode:     string(handler.vehicleService.Mode()),
		Vehicles: handler.vehicleService.Vehicles(),
	})
}

func (handler *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := handler.vehicleService.Vehicle(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "finding vehicle", services.ErrVehicleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (handler *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if err := readJSON(w, r, &vehicle); err != nil {
		writeError(w, "adding vehicle", err)
		return
	}

	created, err := handler.vehicleService.AddVehicle(r.Context(), vehicle)
	if err != nil {
		writeError(w, "adding vehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (handler *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, "updating vehicle", err)
		return
	}
	if err := handler.vehicleService.UpdateVehicle(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, "updating vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := handler.vehicleService.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting vehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *VehicleHandler) Maintenance(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")
	if _, ok := handler.vehicleService.Vehicle(vehicleID); !ok {
		writeError(w, "listing maintenance", services.ErrVehicleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, handler.vehicleService.RecordsForVehicle(vehicleID))
}

func (handler *VehicleHandler) AddMaintenance(w http.ResponseWriter, r *http.Request) {
	var record models.MaintenanceRecord
	if err := readJSON(w, r, &record); err != nil {
		writeError(w, "adding maintenance record", err)
		return
	}
	record.VehicleID = chi.URLParam(r, "id")

	created, err := handler.vehicleService.AddMaintenance(r.Context(), record)
	if err != nil {
		writeError(w, "adding maintenance record", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (handler *VehicleHandler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, "updating maintenance record", err)
		return
	}
	if err := handler.vehicleService.UpdateMaintenance(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, "updating maintenance record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *VehicleHandler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := handler.vehicleService.DeleteMaintenance(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "deleting maintenance record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type remindersResponse struct {
	Upcoming []services.Reminder `json:"upcoming"`
	Overdue  []services.Reminder `json:"overdue"`
}

func (handler *VehicleHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	now := handler.now()
	writeJSON(w, http.StatusOK, remindersResponse{
		Upcoming: handler.vehicleService.Upcoming(now),
		Overdue:  handler.vehicleService.Overdue(now),
	})
}

func (handler *VehicleHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	if err := handler.vehicleService.Migrate(r.Context()); err != nil {
		writeError(w, "migrating vehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(handler.vehicleService.Mode())})
}
