package grpcbal

import (
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsTerminalError(t *testing.T) {
	if !IsTerminalError(status.Error(codes.Internal, "boom")) {
		t.Fatal("Internal should be terminal")
	}
	if !IsTerminalError(status.Error(codes.Unimplemented, "no such method")) {
		t.Fatal("Unimplemented should be terminal")
	}
	if IsTerminalError(status.Error(codes.Unavailable, "try again")) {
		t.Fatal("Unavailable should not be terminal")
	}
	if IsTerminalError(fmt.Errorf("plain error")) {
		t.Fatal("plain errors should not be terminal")
	}
}
