package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"solar_controller/internal/config"
	"solar_controller/internal/service"
)

func TestPostGuard(t *testing.T) {
	type want struct {
		code   int
		errMsg string
		calls  int
	}
	cases := []struct {
		name      string
		localOnly bool
		remote    string
		header    string
		auth      *mockAuth
		want      want
	}{
		{
			name:   "policy off allows anyone",
			remote: "192.0.2.10:5000",
			want:   want{code: http.StatusOK, calls: 1},
		},
		{
			name:      "loopback v4 allowed",
			localOnly: true,
			remote:    "127.0.0.1:5000",
			want:      want{code: http.StatusOK, calls: 1},
		},
		{
			name:      "loopback v6 allowed",
			localOnly: true,
			remote:    "[::1]:5000",
			want:      want{code: http.StatusOK, calls: 1},
		},
		{
			name:      "remote without token",
			localOnly: true,
			remote:    "192.0.2.10:5000",
			auth:      &mockAuth{enabled: true},
			want:      want{code: http.StatusForbidden, errMsg: errPostForbidden},
		},
		{
			name:      "remote with token but no secret configured",
			localOnly: true,
			remote:    "192.0.2.10:5000",
			header:    "Bearer abc",
			auth:      &mockAuth{enabled: false},
			want:      want{code: http.StatusForbidden, errMsg: errPostForbidden},
		},
		{
			name:      "remote with malformed header",
			localOnly: true,
			remote:    "192.0.2.10:5000",
			header:    "Token abc",
			auth:      &mockAuth{enabled: true},
			want:      want{code: http.StatusForbidden, errMsg: errPostForbidden},
		},
		{
			name:      "remote with bad token",
			localOnly: true,
			remote:    "192.0.2.10:5000",
			header:    "Bearer expired",
			auth:      &mockAuth{enabled: true, parseErr: errors.New("expired")},
			want:      want{code: http.StatusForbidden, errMsg: errInvalidToken},
		},
		{
			name:      "remote with good token",
			localOnly: true,
			remote:    "192.0.2.10:5000",
			header:    "Bearer good-token",
			auth:      &mockAuth{enabled: true, subject: "dashboard"},
			want:      want{code: http.StatusOK, calls: 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &mockControl{}
			s := &service.Service{Control: ctrl}
			if tc.auth != nil {
				s.Authorization = tc.auth
			}
			r := newTestRouter(s, config.HTTPConfig{PostLocalhostOnly: tc.localOnly})

			req := httptest.NewRequest(http.MethodPost, "/relay/PUMP", strings.NewReader("true"))
			req.Header.Set("Content-Type", "application/json")
			req.RemoteAddr = tc.remote
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.want.code {
				t.Fatalf("status: got %d, want %d (body=%s)", w.Code, tc.want.code, w.Body.String())
			}
			if len(ctrl.relayCalls) != tc.want.calls {
				t.Fatalf("relay calls: got %d, want %d", len(ctrl.relayCalls), tc.want.calls)
			}
			if tc.want.errMsg != "" {
				var out struct {
					Error string `json:"error"`
				}
				_ = json.Unmarshal(w.Body.Bytes(), &out)
				if out.Error != tc.want.errMsg {
					t.Fatalf("error message: got %q, want %q", out.Error, tc.want.errMsg)
				}
			}
			if tc.header == "Bearer good-token" && tc.auth.lastParseToken != "good-token" {
				t.Fatalf("ParseToken got %q", tc.auth.lastParseToken)
			}
		})
	}
}

func TestPostGuard_ReadsStayOpen(t *testing.T) {
	s := &service.Service{Monitoring: &mockMonitoring{snap: sampleSnapshot()}}
	r := newTestRouter(s, config.HTTPConfig{PostLocalhostOnly: true})

	req := httptest.NewRequest(http.MethodGet, "/relay", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET from remote: %d", w.Code)
	}
}
