package main

import (
	"testing"

	"github.com/starford/folio/internal/models"
)

func TestCreateRequest(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		existing bool
		wantDir  string
		wantType models.ProjectType
		wantErr  bool
	}{
		{name: "new defaults to workspace", wantDir: "/ws", wantType: models.ProjectTypeNew},
		{name: "new with dir", dir: "/elsewhere", wantDir: "/elsewhere", wantType: models.ProjectTypeNew},
		{name: "existing with dir", dir: "/data/run", existing: true, wantDir: "/data/run", wantType: models.ProjectTypeExisting},
		{name: "existing without dir", existing: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := createRequest(tt.dir, "Study", tt.existing, "/ws")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", req)
				}
				return
			}
			if err != nil {
				t.Fatalf("createRequest: %v", err)
			}
			if req.Directory != tt.wantDir || req.Type != tt.wantType || req.Name != "Study" {
				t.Errorf("request = %+v", req)
			}
		})
	}
}
