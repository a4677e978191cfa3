package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"eltexfacts/internal/codec"
	"eltexfacts/internal/config"
	"eltexfacts/internal/domain"
	"eltexfacts/internal/driver"
	"eltexfacts/internal/repository"
	"eltexfacts/internal/textparse"
)

// maxImportSize bounds an imported snapshot body
const maxImportSize = 32 << 20

// Collector runs fact operations against devices
type Collector interface {
	Collect(ctx context.Context, device string) (*domain.Snapshot, error)
	Fact(ctx context.Context, device string, kind domain.FactKind) (any, error)
	DeleteDevice(ctx context.Context, device string) (int64, error)
}

// FactsHandler handles fact API requests
type FactsHandler struct {
	inv       *config.Inventory
	collector Collector
	repo      repository.Repository
	log       *logrus.Entry
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(inv *config.Inventory, collector Collector, repo repository.Repository, log *logrus.Entry) *FactsHandler {
	return &FactsHandler{inv: inv, collector: collector, repo: repo, log: log}
}

// Register adds the API routes to mux
func (h *FactsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/devices", h.ListDevices)
	mux.HandleFunc("GET /api/devices/{name}/facts/{kind}", h.GetFact)
	mux.HandleFunc("POST /api/devices/{name}/collect", h.Collect)
	mux.HandleFunc("GET /api/devices/{name}/snapshot", h.LatestSnapshot)
	mux.HandleFunc("GET /api/devices/{name}/snapshot/{kind}", h.LatestFact)
	mux.HandleFunc("GET /api/devices/{name}/snapshots", h.ListSnapshots)
	mux.HandleFunc("DELETE /api/devices/{name}/snapshots", h.DeleteSnapshots)
	mux.HandleFunc("GET /api/snapshots/{id}", h.GetSnapshot)
	mux.HandleFunc("POST /api/snapshots", h.ImportSnapshot)
	mux.HandleFunc("GET /api/inventory", h.Inventory)
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DeviceView is a device as listed by the API. Credentials are never
// included.
type DeviceView struct {
	Name          string     `json:"name"`
	Host          string     `json:"host,omitempty"`
	Port          int        `json:"port,omitempty"`
	Replay        bool       `json:"replay,omitempty"`
	Snapshots     int        `json:"snapshots"`
	LastCollected *time.Time `json:"last_collected,omitempty"`
}

// ListDevices returns the inventory with collection state
func (h *FactsHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.repo.ListDevices(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list devices")
		h.writeError(w, "Failed to list devices", err.Error(), http.StatusInternalServerError)
		return
	}
	byName := make(map[string]repository.DeviceSummary, len(summaries))
	for _, s := range summaries {
		byName[s.Device] = s
	}

	devices := h.inv.Devices()
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		v := DeviceView{Name: d.Name, Host: d.Host, Port: d.Port, Replay: d.Fixture != ""}
		if v.Replay {
			v.Port = 0
		}
		if s, ok := byName[d.Name]; ok {
			v.Snapshots = s.Snapshots
			last := s.LastCollected
			v.LastCollected = &last
		}
		views = append(views, v)
	}

	h.writeJSON(w, views, http.StatusOK)
}

// GetFact runs one fact operation against the device
func (h *FactsHandler) GetFact(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}
	kind, err := domain.ParseFactKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, "Invalid fact kind", err.Error(), http.StatusBadRequest)
		return
	}

	v, err := h.collector.Fact(r.Context(), name, kind)
	if err != nil {
		h.writeFailure(w, "Fact operation failed", err)
		return
	}

	h.writeFormatted(w, r, v)
}

// Collect runs a full collection and returns the stored snapshot. A
// snapshot with failed operations is still a 200; the failures are in its
// errors field.
func (h *FactsHandler) Collect(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}

	snap, err := h.collector.Collect(r.Context(), name)
	if snap == nil {
		h.writeFailure(w, "Collection failed", err)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("device", name).Warn("Collection finished with errors")
	}

	h.writeFormatted(w, r, snap)
}

// LatestSnapshot returns the most recent stored snapshot
func (h *FactsHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}

	snap, err := h.repo.LatestSnapshot(r.Context(), name)
	if err != nil {
		h.writeFailure(w, "Failed to get snapshot", err)
		return
	}

	h.writeFormatted(w, r, snap)
}

// LatestFact returns one fact slot of the most recent snapshot
func (h *FactsHandler) LatestFact(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}
	kind, err := domain.ParseFactKind(r.PathValue("kind"))
	if err != nil {
		h.writeError(w, "Invalid fact kind", err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.repo.LatestSnapshot(r.Context(), name)
	if err != nil {
		h.writeFailure(w, "Failed to get snapshot", err)
		return
	}
	v := snap.Get(kind)
	if v == nil {
		details := "fact was not collected"
		if msg, ok := snap.Errors[string(kind)]; ok {
			details = msg
		}
		h.writeError(w, "Not found", details, http.StatusNotFound)
		return
	}

	h.writeFormatted(w, r, v)
}

// ListSnapshots returns the snapshot history of a device, newest first
func (h *FactsHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, "Invalid limit", "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snaps, err := h.repo.ListSnapshots(r.Context(), name, limit)
	if err != nil {
		h.writeFailure(w, "Failed to list snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []*domain.Snapshot{}
	}

	h.writeFormatted(w, r, snaps)
}

// DeleteSnapshots drops the stored history of a device
func (h *FactsHandler) DeleteSnapshots(w http.ResponseWriter, r *http.Request) {
	name, ok := h.device(w, r)
	if !ok {
		return
	}

	n, err := h.collector.DeleteDevice(r.Context(), name)
	if err != nil {
		h.writeFailure(w, "Failed to delete snapshots", err)
		return
	}

	h.writeJSON(w, map[string]int64{"deleted": n}, http.StatusOK)
}

// GetSnapshot returns a snapshot by ID
func (h *FactsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.repo.GetSnapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeFailure(w, "Failed to get snapshot", err)
		return
	}

	h.writeFormatted(w, r, snap)
}

// ImportSnapshot stores a snapshot exported as JSON or YAML
func (h *FactsHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	var importer codec.Importer = codec.NewJSONCodec()
	switch r.Header.Get("Content-Type") {
	case "application/yaml", "application/x-yaml", "text/yaml":
		importer = codec.NewYAMLCodec()
	}
	snap, err := importer.Parse(bytes.NewReader(body))
	if err != nil {
		h.writeError(w, "Invalid snapshot", err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.inv.Device(snap.Device); err != nil {
		h.writeError(w, "Unknown device", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.SaveSnapshot(r.Context(), snap); err != nil {
		h.log.WithError(err).Error("Failed to import snapshot")
		h.writeError(w, "Failed to import snapshot", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, snap, http.StatusCreated)
}

// Inventory returns the devices as an Ansible inventory, with facts from
// the latest snapshots where available
func (h *FactsHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	devices := h.inv.Devices()
	hosts := make([]codec.InventoryHost, 0, len(devices))
	for _, d := range devices {
		if d.Host == "" {
			continue
		}
		host := codec.InventoryHost{Name: d.Name, Host: d.Host, Port: d.Port}
		snap, err := h.repo.LatestSnapshot(r.Context(), d.Name)
		switch {
		case err == nil:
			host.Facts = snap.Facts
		case !errors.Is(err, repository.ErrNotFound):
			h.writeFailure(w, "Failed to build inventory", err)
			return
		}
		hosts = append(hosts, host)
	}

	var buf bytes.Buffer
	if err := codec.NewAnsibleCodec().Export(hosts, &buf); err != nil {
		h.writeError(w, "Failed to build inventory", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Write(buf.Bytes())
}

// device resolves the {name} path value against the inventory
func (h *FactsHandler) device(w http.ResponseWriter, r *http.Request) (string, bool) {
	d, err := h.inv.Device(r.PathValue("name"))
	if err != nil {
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
		return "", false
	}
	return d.Name, true
}

// statusFor maps an operation error to an HTTP status
func statusFor(err error) int {
	var chErr *driver.ChannelError
	var parseErr *textparse.ParseError
	switch {
	case errors.Is(err, config.ErrUnknownDevice), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, driver.ErrUnsupportedFeature):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &chErr), errors.As(err, &parseErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *FactsHandler) writeFailure(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error(msg)
	}
	h.writeError(w, msg, err.Error(), status)
}

// writeFormatted encodes v as JSON, or in the codec named by ?format=
func (h *FactsHandler) writeFormatted(w http.ResponseWriter, r *http.Request, v any) {
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		h.writeJSON(w, v, http.StatusOK)
		return
	}
	if format != "yaml" && format != "yml" {
		h.writeError(w, "Invalid format", "format must be json or yaml", http.StatusBadRequest)
		return
	}
	exp, err := codec.ForFormat(format)
	if err != nil {
		h.writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := exp.Export(v, &buf); err != nil {
		h.writeError(w, "Failed to encode response", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *FactsHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.WithError(err).Error("Failed to encode JSON")
	}
}

func (h *FactsHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.log.WithError(err).Error("Failed to encode error response")
	}
}
