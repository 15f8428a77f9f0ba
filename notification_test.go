package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotification_Wire_Format(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"claimed", claimedNotification("Bob"), `{"type":"claimed","name":"Bob"}`},
		{"reset", resetNotification(), `{"type":"reset"}`},
		{"status claimed", statusNotification(ClaimState{Claimed: true, Name: "Bob"}), `{"type":"status","name":"Bob"}`},
		{"status unclaimed", statusNotification(ClaimState{}), `{"type":"status","name":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.n)

			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(got))
		})
	}
}
