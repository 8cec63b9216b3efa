package export

import (
	"apparel-studio/core"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testBundle() *Bundle {
	return &Bundle{
		Views: []core.View{core.ViewFront, core.ViewBack},
		Images: map[core.View][]byte{
			core.ViewFront: []byte("front-png"),
			core.ViewBack:  []byte("back-png"),
		},
		ContentType: "image/png",
		Metadata: core.OrderMetadata{
			Color: "#ffffff",
			Designs: map[core.View][]core.DesignRecord{
				core.ViewFront: {{Name: "logo", Position: core.Point{X: 1, Y: 2}, Scale: 1, Opacity: 1}},
			},
			Quantity:        2,
			UnitPrice:       2000,
			TotalPrice:      4000,
			ShippingAddress: validAddress,
		},
	}
}

func TestHTTPSubmitter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		for field, want := range map[string]string{
			"frontDesignImage": "front-png",
			"backDesignImage":  "back-png",
		} {
			f, _, err := r.FormFile(field)
			if err != nil {
				t.Fatalf("missing %s: %v", field, err)
			}
			data, _ := io.ReadAll(f)
			f.Close()
			if string(data) != want {
				t.Errorf("%s = %q", field, data)
			}
		}
		if _, _, err := r.FormFile("leftArmDesignImage"); err == nil {
			t.Error("sleeve image should not be sent when not exported")
		}
		if r.FormValue("color") != "#ffffff" || r.FormValue("quantity") != "2" || r.FormValue("price") != "2000" {
			t.Errorf("unexpected values %v", r.MultipartForm.Value)
		}

		var designs map[core.View][]core.DesignRecord
		if err := json.Unmarshal([]byte(r.FormValue("designs")), &designs); err != nil || designs[core.ViewFront][0].Name != "logo" {
			t.Errorf("designs = %q (%v)", r.FormValue("designs"), err)
		}
		var addr core.ShippingAddress
		if err := json.Unmarshal([]byte(r.FormValue("shippingAddress")), &addr); err != nil || addr != validAddress {
			t.Errorf("shippingAddress = %q (%v)", r.FormValue("shippingAddress"), err)
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order":{"_id":"abc123"}}`))
	}))
	defer srv.Close()

	id, err := NewHTTPSubmitter(srv.URL).Submit(context.Background(), testBundle(), "tok")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "abc123" {
		t.Errorf("order id = %q", id)
	}
}

func TestHTTPSubmitterServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Quantity must be positive"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSubmitter(srv.URL).Submit(context.Background(), testBundle(), "")
	if !errors.Is(err, ErrSubmit) {
		t.Fatalf("expected ErrSubmit, got %v", err)
	}
	if want := "Quantity must be positive"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should carry the server message", err)
	}
}
