// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	c.Advance(1500 * time.Millisecond)
	if got := c.Now(); !got.Equal(epoch.Add(1500 * time.Millisecond)) {
		t.Fatalf("Now() = %v", got)
	}
}

func TestFakeTickerFiresOnInterval(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	c.Advance(9 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticked before the interval elapsed")
	default:
	}

	c.Advance(1 * time.Millisecond)
	select {
	case tick := <-ticker.C:
		if !tick.Equal(epoch.Add(10 * time.Millisecond)) {
			t.Errorf("tick time = %v", tick)
		}
	default:
		t.Fatal("expected a tick at the interval boundary")
	}
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Millisecond)

	c.Advance(5 * time.Millisecond)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticks should not queue beyond capacity 1")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Millisecond)
	ticker.Stop()

	c.Advance(time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeWaitForTickers(t *testing.T) {
	c := Fake(epoch)
	created := make(chan *Ticker, 1)
	go func() { created <- c.NewTicker(time.Second) }()

	c.WaitForTickers(1)
	c.Advance(time.Second)
	ticker := <-created
	select {
	case <-ticker.C:
	default:
		t.Fatal("expected tick after WaitForTickers + Advance")
	}
}

func TestFakeNewTickerPanicsOnNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	fired := c.After(10 * time.Millisecond)

	c.Advance(9 * time.Millisecond)
	select {
	case <-fired:
		t.Fatal("fired before the deadline")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case at := <-fired:
		if !at.Equal(epoch.Add(10 * time.Millisecond)) {
			t.Errorf("fire time = %v", at)
		}
	default:
		t.Fatal("expected After to fire at the deadline")
	}

	// A fired timer is no longer pending.
	c.Advance(time.Second)
	select {
	case <-fired:
		t.Fatal("After fired twice")
	default:
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) should fire without Advance")
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	registered := make(chan (<-chan time.Time), 1)
	go func() { registered <- c.After(time.Second) }()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	select {
	case <-<-registered:
	default:
		t.Fatal("expected After to fire after WaitForTimers + Advance")
	}
}
