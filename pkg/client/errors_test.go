package client

import (
	"errors"
	"testing"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
)

func TestDecodeErrorWrapsMissingFields(t *testing.T) {
	_, decodeErr := hotspot.Decode([]byte(`{"data": [{"address": "A"}]}`))
	err := syncerr.Decode("decode page", decodeErr)

	var mfe *hotspot.MissingFieldsError
	if !errors.As(err, &mfe) {
		t.Fatalf("errors.As should reach MissingFieldsError, got %v", err)
	}
	if len(mfe.Fields) == 0 {
		t.Error("expected missing field names")
	}
}
