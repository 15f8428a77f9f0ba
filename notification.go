/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
)

type NotificationKind string

const (
	KindClaimed NotificationKind = "claimed"
	KindReset   NotificationKind = "reset"
	KindStatus  NotificationKind = "status"
)

// Notification is a single state-change event pushed to display subscribers.
// Name is only meaningful for claimed and status notifications; an empty
// Name on a status notification means the shield is unclaimed.
type Notification struct {
	Kind NotificationKind
	Name string
}

func claimedNotification(name string) Notification {
	return Notification{Kind: KindClaimed, Name: name}
}

func resetNotification() Notification {
	return Notification{Kind: KindReset}
}

func statusNotification(state ClaimState) Notification {
	return Notification{Kind: KindStatus, Name: state.Name}
}

// Messages sent to display clients
type claimedMessage struct {
	Type string `json:"type"` // "claimed"
	Name string `json:"name"`
}

type resetMessage struct {
	Type string `json:"type"` // "reset"
}

type statusMessage struct {
	Type string  `json:"type"` // "status"
	Name *string `json:"name"` // null when unclaimed
}

func (n Notification) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindClaimed:
		return json.Marshal(claimedMessage{Type: string(n.Kind), Name: n.Name})
	case KindReset:
		return json.Marshal(resetMessage{Type: string(n.Kind)})
	default:
		msg := statusMessage{Type: string(KindStatus)}
		if n.Name != "" {
			name := n.Name
			msg.Name = &name
		}

		return json.Marshal(msg)
	}
}
