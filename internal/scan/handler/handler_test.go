package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	ledgerstore "taptrail/internal/ledger/store"
	"taptrail/internal/scan/service"
	schedulestore "taptrail/internal/schedule/store"
	subjectstore "taptrail/internal/subject/store"
)

type ScanHandlerSuite struct {
	suite.Suite
	router chi.Router
	events *ledgerstore.InMemory
}

func TestScanHandlerSuite(t *testing.T) {
	suite.Run(t, new(ScanHandlerSuite))
}

func (s *ScanHandlerSuite) SetupTest() {
	s.events = ledgerstore.NewInMemory()
	svc := service.New(subjectstore.NewInMemory(), s.events, schedulestore.NewInMemory())
	s.router = chi.NewRouter()
	New(svc, slog.Default()).Register(s.router)
}

func (s *ScanHandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ScanHandlerSuite) TestScanAcceptsFirstTap() {
	rec := s.post("/scan", `{"uid":"CARD-0001"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ScanResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("IN", resp.EventKind)
	s.False(resp.Suppressed)
	s.NotEmpty(resp.SubjectID)
	s.Nil(resp.PreviousEventKind)
}

func (s *ScanHandlerSuite) TestBreakEndpointTogglesBreakState() {
	s.Require().Equal(http.StatusOK, s.post("/scan", `{"uid":"CARD-0001"}`).Code)

	rec := s.post("/scan/break", `{"uid":"CARD-0001"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp ScanResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("BREAK_START", resp.EventKind)
}

func (s *ScanHandlerSuite) TestMalformedBodyRejected() {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `scan me`},
		{"missing uid", `{}`},
		{"blank uid", `{"uid":"   "}`},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rec := s.post("/scan", tc.body)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Contains(rec.Body.String(), "invalid_input")
		})
	}
}

func (s *ScanHandlerSuite) TestInvalidUIDRejectedWithoutSideEffects() {
	rec := s.post("/scan", `{"uid":"has spaces"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}
