package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/app/ledger"
	"github.com/worktracker/worktracker/internal/domain"
)

// ─── Event Hub Tests ────────────────────────────────────────────────────────

func TestEventHub_BroadcastAndSubscribe(t *testing.T) {
	hub := NewEventHub()

	ch, unsub := hub.Subscribe()
	defer unsub()

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Broadcast(ledger.ChangeEvent{
		Kind:    "work_session.created",
		ID:      "ws-1",
		Delta:   decimal.NewFromInt(183),
		Balance: decimal.NewFromInt(183),
	})

	select {
	case msg := <-ch:
		lines := strings.Split(string(msg), "\n")
		if lines[0] != "event: work_session.created" {
			t.Errorf("event line = %q", lines[0])
		}
		var ev ledger.ChangeEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(lines[1], "data: ")), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.ID != "ws-1" || !ev.Balance.Equal(decimal.NewFromInt(183)) {
			t.Errorf("event = %+v", ev)
		}
		if !strings.HasSuffix(string(msg), "\n\n") {
			t.Error("message not terminated by a blank line")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}

func TestEventHub_MultipleClients(t *testing.T) {
	hub := NewEventHub()

	ch1, unsub1 := hub.Subscribe()
	ch2, unsub2 := hub.Subscribe()
	defer unsub1()
	defer unsub2()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Broadcast(ledger.ChangeEvent{Kind: "budget.adjusted"})

	for i, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("client %d timeout", i+1)
		}
	}
}

func TestEventHub_Unsubscribe(t *testing.T) {
	hub := NewEventHub()

	_, unsub := hub.Subscribe()
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1, got %d", hub.ClientCount())
	}

	unsub()
	unsub()
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 after unsub, got %d", hub.ClientCount())
	}
}

func TestEventHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewEventHub()
	_, unsub := hub.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(ledger.ChangeEvent{Kind: "budget.adjusted"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
}

// ─── SSE Endpoint ───────────────────────────────────────────────────────────

func TestEvents_StreamsLedgerChanges(t *testing.T) {
	_, eng, h := setupServer(t)

	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}

	r := bufio.NewReader(resp.Body)
	if line, err := r.ReadString('\n'); err != nil || line != ": connected\n" {
		t.Fatalf("first line = %q, %v", line, err)
	}

	if _, err := eng.CreateFinanceRecord(context.Background(), ledger.FinanceInput{
		Type:   domain.RecordIncome,
		Amount: decimal.NewFromInt(500),
		Date:   fixedTime,
	}); err != nil {
		t.Fatalf("CreateFinanceRecord() error: %v", err)
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if line == "event: finance_record.created\n" {
			data, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read data: %v", err)
			}
			if !strings.Contains(data, `"balance":"500"`) {
				t.Errorf("data = %q", data)
			}
			return
		}
	}
}
