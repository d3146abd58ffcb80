package detector_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goji.io"

	"github.jpl.nasa.gov/bdube/emccd/detector"
	httpdet "github.jpl.nasa.gov/bdube/emccd/generichttp/detector"
)

func newServer(t *testing.T, frameRate float64) *httptest.Server {
	t.Helper()
	d := detector.New(detector.DefaultConfig(), 1)
	h := httpdet.New(d, nil, frameRate)
	mux := goji.NewMux()
	h.RT().Bind(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEMGainRoundTrip(t *testing.T) {
	srv := newServer(t, 100)

	body := bytes.NewBufferString(`{"f64": 750}`)
	resp, err := http.Post(srv.URL+"/em-gain", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /em-gain: status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/em-gain")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var f struct {
		F64 float64 `json:"f64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.F64 != 750 {
		t.Errorf("expected 750 got %v", f.F64)
	}
}

func TestSubUnityGainRejectedOverHTTP(t *testing.T) {
	srv := newServer(t, 100)

	body := bytes.NewBufferString(`{"f64": 0.5}`)
	resp, err := http.Post(srv.URL+"/em-gain", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/frame?frameTime=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 for sub-unity gain, got %d", resp.StatusCode)
	}
}

func TestFrameRateLimit(t *testing.T) {
	srv := newServer(t, 0.001)

	resp, err := http.Get(srv.URL + "/frame?frameTime=0")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first frame: status %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/frame?frameTime=0")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 on immediate second frame, got %d", resp.StatusCode)
	}
}
