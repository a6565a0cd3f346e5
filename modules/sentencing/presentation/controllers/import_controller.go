package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

const maxRequestBody = 1 << 20

// Importer fetches and loads one resolved import file.
type Importer interface {
	Import(ctx context.Context, t services.Target) (domain.LoadResult, error)
}

type ImportControllerOptions struct {
	TriggerPath     string
	HandlePath      string
	TriggerIAMEmail string
	HandleIAMEmail  string

	Verifier  services.TokenVerifier
	Scheduler services.Scheduler
	Resolver  services.Resolver
	Importer  Importer
	Reporter  services.Reporter
}

// ImportController serves the two halves of an import. Trigger receives the
// storage notification and schedules a task; it always answers 200 so the
// notification is never redelivered. Handle runs the task and answers with a
// status the task queue can retry on.
type ImportController struct {
	opts ImportControllerOptions
}

func NewImportController(opts ImportControllerOptions) application.Controller {
	if opts.TriggerPath == "" {
		opts.TriggerPath = "/trigger_import"
	}
	if opts.HandlePath == "" {
		opts.HandlePath = "/handle_import"
	}
	return &ImportController{opts: opts}
}

func (c *ImportController) Key() string {
	return c.opts.TriggerPath + "," + c.opts.HandlePath
}

func (c *ImportController) Register(r *mux.Router) {
	r.HandleFunc(c.opts.TriggerPath, c.Trigger).Methods(http.MethodPost)
	r.HandleFunc(c.opts.HandlePath, c.Handle).Methods(http.MethodPost)
}

type triggerRequest struct {
	Message struct {
		Attributes objectRef `json:"attributes"`
	} `json:"message"`
}

type objectRef struct {
	BucketID string `json:"bucketId"`
	ObjectID string `json:"objectId"`
}

func (o objectRef) validate() error {
	var missing []string
	if strings.TrimSpace(o.BucketID) == "" {
		missing = append(missing, "bucketId")
	}
	if strings.TrimSpace(o.ObjectID) == "" {
		missing = append(missing, "objectId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

type messageResponse struct {
	Message string             `json:"message"`
	Result  *domain.LoadResult `json:"result,omitempty"`
}

func (c *ImportController) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	route := c.opts.TriggerPath

	if err := c.opts.Verifier.Verify(ctx, r.Header.Get("Authorization"), c.opts.TriggerIAMEmail); err != nil {
		c.acknowledge(w, r, fmt.Sprintf("Error verifying token for %s: %v", route, err))
		return
	}

	var req triggerRequest
	if err := decode(r, &req); err != nil {
		c.acknowledge(w, r, fmt.Sprintf("Invalid request body for %s: %v", route, err))
		return
	}
	ref := req.Message.Attributes
	if err := ref.validate(); err != nil {
		c.acknowledge(w, r, fmt.Sprintf("Invalid request body for %s: %v", route, err))
		return
	}

	if _, err := c.opts.Resolver.Resolve(ref.BucketID, ref.ObjectID); err != nil {
		c.acknowledge(w, r, unsupported(ref))
		return
	}

	if err := c.opts.Scheduler.Schedule(ctx, ref.BucketID, ref.ObjectID); err != nil {
		c.acknowledge(w, r, fmt.Sprintf("Error scheduling import of %s from bucket %s: %v", ref.ObjectID, ref.BucketID, err))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Import of %s from bucket %s scheduled", ref.ObjectID, ref.BucketID),
	})
}

func (c *ImportController) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	route := c.opts.HandlePath

	if err := c.opts.Verifier.Verify(ctx, r.Header.Get("Authorization"), c.opts.HandleIAMEmail); err != nil {
		c.fail(w, r, http.StatusUnauthorized, "UNAUTHORIZED", fmt.Sprintf("Error verifying token for %s: %v", route, err))
		return
	}

	var ref objectRef
	if err := decode(r, &ref); err != nil {
		c.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("Invalid request body for %s: %v", route, err))
		return
	}
	if err := ref.validate(); err != nil {
		c.fail(w, r, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("Invalid request body for %s: %v", route, err))
		return
	}

	target, err := c.opts.Resolver.Resolve(ref.BucketID, ref.ObjectID)
	if err != nil {
		c.fail(w, r, http.StatusBadRequest, domain.ErrUnsupportedObject.Code, unsupported(ref))
		return
	}

	result, err := c.opts.Importer.Import(ctx, target)
	if err != nil {
		c.fail(w, r, http.StatusInternalServerError, serrors.Code(err, "SENTENCING_IMPORT_FAILED"),
			fmt.Sprintf("Error importing object %s from bucket %s: %v", ref.ObjectID, ref.BucketID, err))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Import of %s from bucket %s completed", ref.ObjectID, ref.BucketID),
		Result:  &result,
	})
}

// acknowledge reports message and answers 200.
func (c *ImportController) acknowledge(w http.ResponseWriter, r *http.Request, message string) {
	c.opts.Reporter.Report(r.Context(), message)
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func (c *ImportController) fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	c.opts.Reporter.Report(r.Context(), message)
	_ = httpapi.WriteError(w, status, code, message, httpapi.RequestMeta(r))
}

func unsupported(ref objectRef) string {
	return fmt.Sprintf("Unsupported bucket + object pair: %s/%s", ref.BucketID, ref.ObjectID)
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
