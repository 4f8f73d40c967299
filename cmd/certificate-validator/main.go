package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/jrennert/insurancedocflow/internal/models"
	"github.com/jrennert/insurancedocflow/internal/services"
)

var (
	validatorInstance *services.ValidatorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleValidateCertificate", handleValidateCertificate)
}

// main is required by the Go Functions Framework.
func main() {}

// handleValidateCertificate is the HTTP handler invoked by the QC workflow.
func handleValidateCertificate(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		validatorInstance, initErr = services.NewValidator(context.Background())
	})
	if initErr != nil {
		slog.Error("Validator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.CertificateValidatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := validatorInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
