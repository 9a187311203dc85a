package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "multibyte content", content: "公園の整備を進めてほしい"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestArgumentID(t *testing.T) {
	if got := ArgumentID("12", 0); got != "A12_0" {
		t.Errorf("ArgumentID() = %q, want %q", got, "A12_0")
	}
	if got := ArgumentID("c-7", 3); got != "Ac-7_3" {
		t.Errorf("ArgumentID() = %q, want %q", got, "Ac-7_3")
	}
}

func TestClusterID(t *testing.T) {
	if got := ClusterID(2, 14); got != "2_14" {
		t.Errorf("ClusterID() = %q, want %q", got, "2_14")
	}
}
