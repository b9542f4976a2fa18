package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
)

type depositor interface {
	Deposit(ctx context.Context, in *grpc_adapter.TransactionRequest, opts ...grpc.CallOption) (*grpc_adapter.TransactionResponse, error)
}

type benchResult struct {
	total   int
	failed  int64
	elapsed time.Duration
}

func (r benchResult) tps() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.total) / r.elapsed.Seconds()
}

// runBench 以固定併發量送出 count 筆存款，每筆使用新的 ref id
func runBench(ctx context.Context, client depositor, account int64, amount string, count, concurrency int) benchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	var failed atomic.Int64
	sem := make(chan struct{}, concurrency)

	startTime := time.Now()
	for i := 0; i < count; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := client.Deposit(ctx, &grpc_adapter.TransactionRequest{
				RefID:         uuid.NewString(),
				AccountNumber: account,
				Amount:        amount,
			})
			if err != nil || !resp.Success {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	return benchResult{
		total:   count,
		failed:  failed.Load(),
		elapsed: time.Since(startTime),
	}
}
