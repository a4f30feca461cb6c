package trafficlight_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fujiwara/trafficlight"
)

func TestTransferQueueFIFO(t *testing.T) {
	q := trafficlight.NewTransferQueue[int]()
	for i := 0; i < 100; i++ {
		q.Send(i)
	}
	if n := q.Len(); n != 100 {
		t.Fatalf("len=%d want 100", n)
	}
	for i := 0; i < 100; i++ {
		if v := q.Receive(); v != i {
			t.Fatalf("receive #%d got %d", i, v)
		}
	}
	if n := q.Len(); n != 0 {
		t.Errorf("len=%d want 0", n)
	}
}

func TestTransferQueuePointerOwnership(t *testing.T) {
	type payload struct{ id int }
	q := trafficlight.NewTransferQueue[*payload]()
	p := &payload{id: 1}
	q.Send(p)
	got := q.Receive()
	if got != p {
		t.Fatalf("got %p want %p", got, p)
	}
	if q.Len() != 0 {
		t.Error("queue still holds the received value")
	}
}

func TestTransferQueueReceiveBlocksUntilSend(t *testing.T) {
	q := trafficlight.NewTransferQueue[string]()
	got := make(chan string, 1)
	go func() {
		got <- q.Receive()
	}()

	select {
	case v := <-got:
		t.Fatalf("receive returned %q before send", v)
	case <-time.After(50 * time.Millisecond):
	}

	q.Send("x")
	select {
	case v := <-got:
		if v != "x" {
			t.Errorf("got %q want x", v)
		}
	case <-time.After(time.Second):
		t.Fatal("receive did not return after send")
	}
}

func TestTransferQueueConcurrentConsumers(t *testing.T) {
	q := trafficlight.NewTransferQueue[int]()
	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, err := q.ReceiveContext(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				got = append(got, v)
				n := len(got)
				mu.Unlock()
				if n == 3 {
					cancel()
				}
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	q.Send(1)
	q.Send(2)
	q.Send(3)
	wg.Wait()

	sort.Ints(got)
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("consumers got %v want [1 2 3]", got)
	}
	if q.Len() != 0 {
		t.Errorf("len=%d want 0", q.Len())
	}
}

func TestTransferQueueManyConsumers(t *testing.T) {
	q := trafficlight.NewTransferQueue[int]()
	const total = 1000
	const workers = 8
	results := make(chan int, total)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < total/workers; j++ {
				results <- q.Receive()
			}
		}()
	}
	for i := 0; i < total; i++ {
		q.Send(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool, total)
	for v := range results {
		if seen[v] {
			t.Fatalf("value %d delivered twice", v)
		}
		seen[v] = true
	}
	if len(seen) != total {
		t.Errorf("delivered %d values want %d", len(seen), total)
	}
}

func TestTransferQueueReceiveContext(t *testing.T) {
	q := trafficlight.NewTransferQueue[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.ReceiveContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err=%v want deadline exceeded", err)
	}

	canceled, cancel2 := context.WithCancel(context.Background())
	cancel2()
	q.Send(7)
	v, err := q.ReceiveContext(canceled)
	if err != nil || v != 7 {
		t.Errorf("got (%d, %v) want (7, nil): a queued value wins over cancellation", v, err)
	}
	if _, err := q.ReceiveContext(canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("err=%v want canceled", err)
	}
}

func TestTransferQueueReceiveContextWakes(t *testing.T) {
	q := trafficlight.NewTransferQueue[string]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := q.ReceiveContext(ctx)
		if err != nil || v != "x" {
			t.Errorf("receive got (%q,%v)", v, err)
		}
	}()
	time.Sleep(10 * time.Millisecond)
	q.Send("x")
	<-done
}
