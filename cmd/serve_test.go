package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooks-street/outreach-pipeline/internal/contact"
	"github.com/brooks-street/outreach-pipeline/internal/enrich"
	"github.com/brooks-street/outreach-pipeline/internal/model"
	"github.com/brooks-street/outreach-pipeline/internal/outreach"
	"github.com/brooks-street/outreach-pipeline/internal/pipeline"
	"github.com/brooks-street/outreach-pipeline/internal/store"
)

type fixedGeocoder struct{}

func (fixedGeocoder) Standardize(_ context.Context, address string) (*model.StandardizedAddress, error) {
	return &model.StandardizedAddress{
		Formatted:  strings.ToUpper(address),
		Confidence: model.AddressConfidenceMedium,
	}, nil
}

func newTestAPI(t *testing.T) (*apiServer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	enricher := enrich.New(fixedGeocoder{})
	contacts := contact.NewEngine(contact.RuleScorer{})
	env := &pipelineEnv{
		Store:        st,
		Orchestrator: pipeline.New(nil, st, enricher, contacts, 1),
		Contacts:     contacts,
		Outreach:     outreach.NewService(st, nil),
	}
	return &apiServer{env: env}, st
}

func testRouter(api *apiServer) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", api.health)
	r.Post("/batch", api.startBatch(context.Background()))
	r.Route("/buildings", func(r chi.Router) {
		r.Get("/", api.listBuildings)
		r.Get("/{id}", api.getBuilding)
		r.Post("/{id}/approve", api.approveBuilding)
		r.Post("/{id}/contact", api.resolveContact)
		r.Post("/{id}/outreach", api.sendOutreach)
	})
	return r
}

func seedAPIRecord(t *testing.T, st store.Store, resolved *model.ResolvedContact) *model.Record {
	t.Helper()
	rec, err := st.InsertRecord(context.Background(),
		model.Building{
			Name:                 "Court Street Lofts",
			Address:              "30 Court St, Brooklyn, NY",
			ResidentialConfirmed: true,
		},
		resolved,
		model.KeySet{NormalizedAddress: "30 court street brooklyn ny"},
	)
	require.NoError(t, err)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	api, _ := newTestAPI(t)
	router := testRouter(api)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestListBuildingsEmpty(t *testing.T) {
	api, _ := newTestAPI(t)
	router := testRouter(api)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/buildings", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestGetBuilding(t *testing.T) {
	api, st := newTestAPI(t)
	router := testRouter(api)
	rec := seedAPIRecord(t, st, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/buildings/"+rec.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Court Street Lofts", got.Building.Name)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/buildings/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestApproveResolvesMissingContact(t *testing.T) {
	api, st := newTestAPI(t)
	router := testRouter(api)
	rec := seedAPIRecord(t, st, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/buildings/"+rec.ID+"/approve", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got model.Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Approved)
	require.NotNil(t, got.Contact, "approval should trigger contact resolution")
	assert.False(t, got.Contact.Verified)

	stored, err := st.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.Approved)
	assert.NotNil(t, stored.Contact)
}

func TestSendOutreachEndpoint(t *testing.T) {
	api, st := newTestAPI(t)
	router := testRouter(api)
	rec := seedAPIRecord(t, st, &model.ResolvedContact{
		ContactCandidate: model.ContactCandidate{Email: "leasing@courtstreet.com"},
		Score:            8,
		Verified:         true,
	})

	body := strings.NewReader(`{"subject": "Leasing inquiry", "body": "Hello"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/buildings/"+rec.ID+"/outreach", body))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "unapproved records are refused")

	require.NoError(t, st.ApproveRecord(context.Background(), rec.ID))

	body = strings.NewReader(`{"subject": "Leasing inquiry", "body": "Hello"}`)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/buildings/"+rec.ID+"/outreach", body))
	require.Equal(t, http.StatusOK, rr.Code)

	var log model.OutreachLog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &log))
	assert.Equal(t, "sent", log.Status)

	body = strings.NewReader(`{"subject": "", "body": ""}`)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/buildings/"+rec.ID+"/outreach", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStartBatchValidation(t *testing.T) {
	api, _ := newTestAPI(t)
	router := testRouter(api)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/batch", strings.NewReader(`{"regions": []}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
