package models

import (
	"errors"
	"testing"
)

func TestUserStatus_Transition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    UserStatus
		action  StatusAction
		want    UserStatus
		wantMsg string
	}{
		{name: "activate pending", from: UserStatusPending, action: StatusActionActivate, want: UserStatusActive},
		{name: "activate inactive", from: UserStatusInactive, action: StatusActionActivate, want: UserStatusActive},
		{name: "activate active", from: UserStatusActive, action: StatusActionActivate, wantMsg: "User is already active"},
		{name: "activate blocked", from: UserStatusBlocked, action: StatusActionActivate, wantMsg: "Cannot activate a blocked user. Please unblock first."},
		{name: "deactivate active", from: UserStatusActive, action: StatusActionDeactivate, want: UserStatusInactive},
		{name: "deactivate pending", from: UserStatusPending, action: StatusActionDeactivate, wantMsg: "Can only deactivate users with ACTIVE status"},
		{name: "block active", from: UserStatusActive, action: StatusActionBlock, want: UserStatusBlocked},
		{name: "block blocked", from: UserStatusBlocked, action: StatusActionBlock, wantMsg: "User is already blocked"},
		{name: "block inactive", from: UserStatusInactive, action: StatusActionBlock, wantMsg: "Can only block users with ACTIVE status"},
		{name: "unblock blocked", from: UserStatusBlocked, action: StatusActionUnblock, want: UserStatusActive},
		{name: "unblock active", from: UserStatusActive, action: StatusActionUnblock, wantMsg: "Can only unblock users with BLOCKED status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.from.Transition(tt.action)
			if tt.wantMsg != "" {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if msg, _ := ErrorMessage(err); msg != tt.wantMsg {
					t.Errorf("message = %q, want %q", msg, tt.wantMsg)
				}
				if got != tt.from {
					t.Errorf("status changed on error: %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUserStatus_Transition_UnknownAction(t *testing.T) {
	t.Parallel()
	_, err := UserStatusActive.Transition("promote")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestNormalizeTagName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Go ", "go"},
		{"Electric Cars", "electric cars"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTagName(tt.in); got != tt.want {
			t.Errorf("NormalizeTagName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
