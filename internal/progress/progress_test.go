package progress

import "testing"

type stringerStub string

func (s stringerStub) String() string { return string(s) }

func TestDisabledBarIsNoOp(t *testing.T) {
	b := New(false, -1)
	b.Set(10)
	b.Describe(stringerStub("scanning"))
	b.Finish(stringerStub("done"))
	// no panics, no writer output: disabled Bar wraps a nil *progressbar.ProgressBar
}

func TestSpinnerModeDoesNotPanic(t *testing.T) {
	b := New(true, -1)
	b.Describe(stringerStub("scanning"))
	b.Set(1)
	b.Finish(stringerStub("done"))
}

func TestDeterminateModeDoesNotPanic(t *testing.T) {
	b := New(true, 100)
	b.Set(50)
	b.Describe(stringerStub("halfway"))
	b.Finish(stringerStub("done"))
}
