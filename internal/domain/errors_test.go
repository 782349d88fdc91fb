package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

func TestMessageForCodes(t *testing.T) {
	noPicture, _ := domain.CodeNoPictureProvided.Message()
	tooLarge, _ := domain.CodeFileTooLarge.Message()

	cases := []struct {
		name  string
		codes []domain.ErrorCode
		want  string
	}{
		{"single", []domain.ErrorCode{domain.CodeNoPictureProvided}, noPicture},
		{"unknown only", []domain.ErrorCode{999}, domain.GenericMessage},
		{"empty", nil, domain.GenericMessage},
		{"unknown dropped", []domain.ErrorCode{999, domain.CodeFileTooLarge}, tooLarge},
		{"joined", []domain.ErrorCode{domain.CodeFileTooLarge, domain.CodeNoPictureProvided}, tooLarge + "\n" + noPicture},
	}
	for _, c := range cases {
		if got := domain.MessageForCodes(c.codes); got != c.want {
			t.Errorf("%s: MessageForCodes(%v) = %q, want %q", c.name, c.codes, got, c.want)
		}
	}
}

func TestEveryKnownCodeHasMessage(t *testing.T) {
	for c := domain.CodeGeneric; c <= domain.CodeNoWatermarkDataProvided; c++ {
		if m, ok := c.Message(); !ok || m == "" {
			t.Errorf("code %d has no message", c)
		}
	}
	if _, ok := domain.ErrorCode(13).Message(); ok {
		t.Error("code 13 should not be recognized")
	}
}

func TestFailureMessage(t *testing.T) {
	serviceErr := &domain.ServiceError{StatusCode: 400, Codes: []domain.ErrorCode{domain.CodeInvalidFileType}}
	want, _ := domain.CodeInvalidFileType.Message()
	if got := domain.FailureMessage(fmt.Errorf("wrapped: %w", serviceErr)); got != want {
		t.Errorf("FailureMessage(service) = %q, want %q", got, want)
	}

	transportErr := &domain.TransportError{Err: errors.New("connection refused")}
	if got := domain.FailureMessage(transportErr); got != domain.GenericMessage {
		t.Errorf("FailureMessage(transport) = %q", got)
	}
	if got := domain.FailureMessage(errors.New("boom")); got != domain.GenericMessage {
		t.Errorf("FailureMessage(plain) = %q", got)
	}
}
