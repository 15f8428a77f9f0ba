/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var (
	ErrAlreadyClaimed = errors.New("shield already claimed")
	ErrInvalidName    = errors.New("name is required")
	ErrSubscriberSend = errors.New("failed to notify display")
)

// AlreadyClaimedError carries the name of whoever won the current round.
type AlreadyClaimedError struct {
	Name string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("shield already triggered by %s", e.Name)
}

func (e *AlreadyClaimedError) Is(target error) bool {
	return target == ErrAlreadyClaimed
}

func logf(cfg *Config, format string, args ...any) {
	if cfg == nil || !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(prefix, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(fmt.Sprintf(`<link rel="icon" type="image/svg+xml" href="%s/assets/shield.svg">`, prefix))
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s/\">%s</a></body></html>", prefix, body))

	return htmlBody.String()
}
