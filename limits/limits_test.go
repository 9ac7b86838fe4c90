package limits

import (
	"errors"
	"testing"
)

func TestFrameBudget(t *testing.T) {
	if MaxBodySize+MaxHeaderMetadataSize+512 != 102400 {
		t.Errorf("body + metadata + overhead = %d, want 102400", MaxBodySize+MaxHeaderMetadataSize+512)
	}
	if MaxInboxSize != 1<<27 || MaxOutboxSize != 1<<27 {
		t.Errorf("unexpected mailbox allowances: inbox %d outbox %d", MaxInboxSize, MaxOutboxSize)
	}
}

func TestValidateSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		max     int
		wantErr error
	}{
		{"empty", 0, 10, ErrEmpty},
		{"within limit", 5, 10, nil},
		{"at limit", 10, 10, nil},
		{"over limit", 11, 10, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSize(make([]byte, tt.size), tt.max)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMetadata(t *testing.T) {
	if err := ValidateMetadata(nil); err != nil {
		t.Errorf("empty metadata should be accepted: %v", err)
	}
	if err := ValidateMetadata(make([]byte, MaxHeaderMetadataSize)); err != nil {
		t.Errorf("metadata at limit should be accepted: %v", err)
	}
	if err := ValidateMetadata(make([]byte, MaxHeaderMetadataSize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized metadata: got %v, want ErrTooLarge", err)
	}
}

func TestValidateBody(t *testing.T) {
	if err := ValidateBody(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty body: got %v, want ErrEmpty", err)
	}
	if err := ValidateBody(make([]byte, MaxBodySize)); err != nil {
		t.Errorf("body at limit should be accepted: %v", err)
	}
	if err := ValidateBody(make([]byte, MaxBodySize+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized body: got %v, want ErrTooLarge", err)
	}
}

func TestValidateProcessingBuffer(t *testing.T) {
	if err := ValidateProcessingBuffer(make([]byte, MaxProcessingBuffer+1)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("got %v, want ErrTooLarge", err)
	}
}
