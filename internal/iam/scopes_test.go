package iam

import "testing"

func TestNegotiateScopes(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		requested string
		want      string
	}{
		{
			name:      "full overlap keeps user order",
			user:      "rentals.read profile.read rentals.write",
			requested: "rentals.write rentals.read profile.read",
			want:      "rentals.read profile.read rentals.write",
		},
		{
			name:      "partial overlap",
			user:      "rentals.read profile.read",
			requested: "rentals.read stations.manage",
			want:      "rentals.read",
		},
		{
			name:      "empty intersection is valid",
			user:      "rentals.read",
			requested: "stations.manage",
			want:      "",
		},
		{
			name:      "case sensitive",
			user:      "Rentals.Read",
			requested: "rentals.read",
			want:      "",
		},
		{
			name:      "no implicit wildcard",
			user:      "rentals.*",
			requested: "rentals.read",
			want:      "",
		},
		{
			name:      "duplicates in user list removed",
			user:      "rentals.read rentals.read profile.read",
			requested: "profile.read rentals.read",
			want:      "rentals.read profile.read",
		},
		{
			name:      "empty user scopes",
			user:      "",
			requested: "rentals.read",
			want:      "",
		},
		{
			name:      "empty requested scopes",
			user:      "rentals.read",
			requested: "",
			want:      "",
		},
		{
			name:      "extra whitespace tolerated",
			user:      "rentals.read  profile.read",
			requested: " profile.read ",
			want:      "profile.read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NegotiateScopes(tt.user, tt.requested)
			if got != tt.want {
				t.Errorf("NegotiateScopes(%q, %q) = %q, want %q", tt.user, tt.requested, got, tt.want)
			}
		})
	}
}
