package detector

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "image/png" {
			http.Error(w, "content type "+ct, http.StatusUnsupportedMediaType)
			return
		}
		img, err := png.Decode(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if img.Bounds().Dx() != 20 {
			http.Error(w, "wrong size", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"detections":[
			{"class":"signature","confidence":0.91,"bbox":{"left":1,"top":2,"width":3,"height":4}},
			{"class":"stamp","confidence":0.2,"bbox":{"left":0,"top":0,"width":1,"height":1}}]}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, MinConfidence: 0.5})
	dets, err := c.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 10)))
	if err != nil {
		t.Fatal(err)
	}
	if len(dets) != 1 || dets[0].Class != "signature" || dets[0].BBox.Height != 4 {
		t.Fatalf("got %+v", dets)
	}
}

func TestDetect_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := New(Config{Endpoint: srv.URL}).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Fatal("empty endpoint must be disabled")
	}
}
