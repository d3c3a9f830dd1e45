package main

import (
	"testing"

	"github.com/bsirb/xlsxstream"
)

func TestExitCodeForKind(t *testing.T) {
	cases := []struct {
		kind xlsxstream.Kind
		want int
	}{
		{xlsxstream.UnsupportedSource, exitUnsupportedSource},
		{xlsxstream.NotFound, exitNotFound},
		{xlsxstream.SheetNotFound, exitNotFound},
		{xlsxstream.Auth, exitAuth},
		{xlsxstream.PermissionDenied, exitAuth},
		{xlsxstream.MalformedXML, exitMalformed},
		{xlsxstream.CRCMismatch, exitMalformed},
		{xlsxstream.Timeout, exitCancelled},
		{xlsxstream.Network, exitIOError},
		{xlsxstream.SinkIO, exitIOError},
	}
	for _, c := range cases {
		if got := exitCodeForKind(c.kind); got != c.want {
			t.Errorf("exitCodeForKind(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestNewRootCmdRequiresSourceArgument(t *testing.T) {
	cmd, _ := newRootCmd()
	cmd.SetArgs(nil)
	cmd.SetOut(new(nopWriter))
	cmd.SetErr(new(nopWriter))
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when no source argument is given")
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
