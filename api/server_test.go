package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CristiGvl/picoOmenCtl/internal/ec"
	"github.com/CristiGvl/picoOmenCtl/internal/profile"
	"github.com/CristiGvl/picoOmenCtl/internal/temps"
)

type fakeAccess struct {
	state  ec.State
	regs   map[uint16]byte
	writes []ec.RegisterCommand
}

func (a *fakeAccess) State() ec.State { return a.state }

func (a *fakeAccess) ProbeError() error {
	if a.state == ec.StatePrivileged {
		return nil
	}
	return ec.ErrDenied
}

func (a *fakeAccess) Read(ctx context.Context, register uint16) (byte, ec.Result) {
	if a.state != ec.StatePrivileged {
		return 0, ec.Degraded("sentinel")
	}
	return a.regs[register], ec.Applied()
}

func (a *fakeAccess) Write(ctx context.Context, register uint16, value byte) ec.Result {
	a.writes = append(a.writes, ec.RegisterCommand{Register: register, Value: value})
	return ec.Applied()
}

type fakeFan struct {
	result   ec.Result
	requests []int
	resets   int
}

func (f *fakeFan) SetFanSpeed(ctx context.Context, percentage int) ec.Result {
	f.requests = append(f.requests, percentage)
	return f.result
}

func (f *fakeFan) ResetToAuto(ctx context.Context) ec.Result {
	f.resets++
	return f.result
}

func (f *fakeFan) TargetRPM(percentage int) int {
	return percentage * 5800 / 100
}

type fakePerformance struct {
	err   error
	modes []string
}

func (p *fakePerformance) SetPerformanceMode(ctx context.Context, mode string) error {
	p.modes = append(p.modes, mode)
	return p.err
}

type fakeTemps struct{}

func (fakeTemps) GetInfo(ctx context.Context) (*temps.Info, error) {
	return &temps.Info{Hottest: 72.5}, nil
}

type fixture struct {
	server *Server
	access *fakeAccess
	fan    *fakeFan
	perf   *fakePerformance
}

func newFixture(t *testing.T, state ec.State) *fixture {
	t.Helper()
	return newFixtureWithOrigins(t, state)
}

func newFixtureWithOrigins(t *testing.T, state ec.State, origins ...string) *fixture {
	t.Helper()
	p, ok := profile.GetProfile("89C3", "")
	require.True(t, ok)

	f := &fixture{
		access: &fakeAccess{state: state, regs: map[uint16]byte{0x2E: 40}},
		fan:    &fakeFan{result: ec.Applied()},
		perf:   &fakePerformance{},
	}
	server, err := NewServer(Deps{
		Access:      f.access,
		Fan:         f.fan,
		Performance: f.perf,
		Temps:       fakeTemps{},
		Board:       &profile.Board{BoardID: "89C3", ProductName: "OMEN by HP Laptop 16-b1xxx"},
		Profile:     &p,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),

		AllowedOrigins: origins,
	})
	require.NoError(t, err)
	f.server = server
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.Error(t, err)
}

func TestChannelEndpoint(t *testing.T) {
	f := newFixture(t, ec.StateFallback)

	code, body := f.do(t, http.MethodGet, "/api/channel", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fallback", body["state"])
	assert.Contains(t, body["privileged_error"], "denied")
}

func TestProfileEndpoint(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, body := f.do(t, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["supported"])
	prof := body["profile"].(map[string]any)
	assert.Equal(t, "HP Omen 16-b Series", prof["name"])
	assert.Equal(t, float64(5800), prof["fan_max_rpm"])
}

func TestSetFanSpeedEndpoint(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, body := f.do(t, http.MethodPost, "/api/fan", `{"speed_percent": 140}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, float64(100), body["speed_percent"])
	assert.Equal(t, float64(5800), body["target_rpm"])
	assert.Equal(t, []int{140}, f.fan.requests)
}

func TestSetFanSpeedEndpointDegradedAndFailed(t *testing.T) {
	f := newFixture(t, ec.StateFallback)

	f.fan.result = ec.Degraded("requested 90%%, applied BIOS fan preset Max")
	code, body := f.do(t, http.MethodPost, "/api/fan", `{"speed_percent": 90}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])

	f.fan.result = ec.Failed("fan preset Max: not present")
	code, body = f.do(t, http.MethodPost, "/api/fan", `{"speed_percent": 90}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "failed", body["status"])
}

func TestSetFanSpeedEndpointRejectsMissingSpeed(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, _ := f.do(t, http.MethodPost, "/api/fan", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, f.fan.requests)
}

func TestResetFanEndpoint(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, body := f.do(t, http.MethodPost, "/api/fan/reset", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", body["status"])
	assert.Equal(t, 1, f.fan.resets)
}

func TestPerformanceEndpoint(t *testing.T) {
	f := newFixture(t, ec.StateFallback)

	code, body := f.do(t, http.MethodPost, "/api/performance", `{"mode": "Comfort"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cool", body["mode"])
	assert.Equal(t, []string{"Comfort"}, f.perf.modes)

	f.perf.err = errors.New("set \"System Performance Mode\" returned code 6")
	code, body = f.do(t, http.MethodPost, "/api/performance", `{"mode": "turbo"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "failed", body["status"])
	assert.Contains(t, body["reason"], "Standard")
}

func TestRegisterEndpoints(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, body := f.do(t, http.MethodGet, "/api/ec/0x2E", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(40), body["value"])
	assert.Equal(t, "applied", body["status"])

	code, _ = f.do(t, http.MethodPost, "/api/ec/45", `{"value": 1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []ec.RegisterCommand{{Register: 0x2D, Value: 1}}, f.access.writes)

	code, _ = f.do(t, http.MethodPost, "/api/ec/45", `{"value": 300}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/ec/zz", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRegisterReadFallbackIsDegraded(t *testing.T) {
	f := newFixture(t, ec.StateFallback)

	code, body := f.do(t, http.MethodGet, "/api/ec/0x2E", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, float64(0), body["value"])
}

func TestTempsAndHealth(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, body := f.do(t, http.MethodGet, "/api/temps", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 72.5, body["hottest_celsius"])

	code, body = f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "privileged", body["channel"])
}

func (f *fixture) fromOrigin(t *testing.T, method, path, origin, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Origin", origin)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}

	resp, err := f.server.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestForeignOriginIsRefused(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	resp := f.fromOrigin(t, http.MethodOptions, "/api/ec/0x2E", "https://evil.example", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	for _, path := range []string{"/api/ec/0x2E", "/api/fan", "/api/fan/reset", "/api/performance"} {
		resp = f.fromOrigin(t, http.MethodPost, path, "https://evil.example", `{"value": 0, "speed_percent": 0, "mode": "default"}`)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}

	assert.Empty(t, f.access.writes)
	assert.Empty(t, f.fan.requests)
	assert.Zero(t, f.fan.resets)
	assert.Empty(t, f.perf.modes)
}

func TestAllowedOriginPasses(t *testing.T) {
	f := newFixtureWithOrigins(t, ec.StatePrivileged, "http://localhost:3000")

	resp := f.fromOrigin(t, http.MethodOptions, "/api/ec/0x2E", "http://localhost:3000", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = f.fromOrigin(t, http.MethodPost, "/api/ec/0x2E", "http://localhost:3000", `{"value": 0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []ec.RegisterCommand{{Register: 0x2E, Value: 0}}, f.access.writes)

	resp = f.fromOrigin(t, http.MethodPost, "/api/ec/0x2E", "http://localhost:3001", `{"value": 1}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Len(t, f.access.writes, 1)
}

func TestRegisterEndpointRejectsAddressOutsideECRAM(t *testing.T) {
	f := newFixture(t, ec.StatePrivileged)

	code, _ := f.do(t, http.MethodPost, "/api/ec/0x12E", `{"value": 1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/ec/256", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/ec/0xFF", `{"value": 1}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []ec.RegisterCommand{{Register: 0xFF, Value: 1}}, f.access.writes)
}
