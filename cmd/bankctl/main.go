package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	grpc_adapter "github.com/JoeShih716/go-mem-bank/internal/app/core/adapter/in/grpc"
	grpcx "github.com/JoeShih716/go-mem-bank/pkg/grpc"
)

const usage = `usage: bankctl [-addr host:port] [-timeout 5s] <command> [flags]

commands:
  customer-create -document D -name N [-birth-date YYYY-MM-DD] [-address A]
  customer-list
  account-create  -document D
  account-list    [-document D]
  account-get     -account N
  deposit         -account N -amount X [-ref-id UUID]
  withdraw        -account N -amount X [-ref-id UUID]
  balance         -account N
  statement       -account N [-type deposit|withdraw]
  bench           -account N [-count 10000] [-concurrency 100] [-amount 1]
`

func main() {
	addr := flag.String("addr", envOr("BANK_GRPC_ADDR", "localhost:50051"), "bank server address")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout (bench uses 120s)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	pool := grpcx.NewPool()
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		fatal(err)
	}
	client := grpc_adapter.NewClient(conn)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "bench" {
		*timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := dispatch(ctx, client, cmd, args); err != nil {
		fatal(err)
	}
}

func dispatch(ctx context.Context, client *grpc_adapter.Client, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	document := fs.String("document", "", "customer document")
	account := fs.Int64("account", 0, "account number")
	amount := fs.String("amount", "", "amount")
	refID := fs.String("ref-id", "", "transaction reference id (UUID)")

	switch cmd {
	case "customer-create":
		name := fs.String("name", "", "customer name")
		birthDate := fs.String("birth-date", "", "birth date")
		address := fs.String("address", "", "address")
		fs.Parse(args)
		return printJSON(client.CreateCustomer(ctx, &grpc_adapter.CreateCustomerRequest{
			Document:  *document,
			Name:      *name,
			BirthDate: *birthDate,
			Address:   *address,
		}))

	case "customer-list":
		fs.Parse(args)
		return printJSON(client.ListCustomers(ctx, &grpc_adapter.ListCustomersRequest{}))

	case "account-create":
		fs.Parse(args)
		return printJSON(client.CreateAccount(ctx, &grpc_adapter.CreateAccountRequest{Document: *document}))

	case "account-list":
		fs.Parse(args)
		return printJSON(client.ListAccounts(ctx, &grpc_adapter.ListAccountsRequest{Document: *document}))

	case "account-get":
		fs.Parse(args)
		return printJSON(client.GetAccount(ctx, &grpc_adapter.GetAccountRequest{AccountNumber: *account}))

	case "balance":
		fs.Parse(args)
		return printJSON(client.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{AccountNumber: *account}))

	case "deposit", "withdraw":
		fs.Parse(args)
		req := &grpc_adapter.TransactionRequest{RefID: *refID, AccountNumber: *account, Amount: *amount}
		var resp *grpc_adapter.TransactionResponse
		var err error
		if cmd == "deposit" {
			resp, err = client.Deposit(ctx, req)
		} else {
			resp, err = client.Withdraw(ctx, req)
		}
		if err != nil {
			return err
		}
		if err := printJSON(resp, nil); err != nil {
			return err
		}
		if !resp.Success {
			return fmt.Errorf("%s: %s", resp.Code, resp.Message)
		}
		return nil

	case "statement":
		tranType := fs.String("type", "", "deposit or withdraw")
		fs.Parse(args)
		req := &grpc_adapter.StatementRequest{AccountNumber: *account}
		if *tranType != "" {
			req.Types = strings.Split(*tranType, ",")
		}
		stream, err := client.Statement(ctx, req)
		if err != nil {
			return err
		}
		for {
			tran, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s  %-8s  %12s  %s\n",
				tran.CreatedAt.AsTime().Local().Format(time.DateTime),
				tran.Type,
				tran.Amount.StringFixed(2),
				tran.RefID,
			)
		}

	case "bench":
		count := fs.Int("count", 10000, "number of deposits")
		concurrency := fs.Int("concurrency", 100, "concurrent requests")
		fs.Parse(args)
		if *amount == "" {
			*amount = "1"
		}
		result := runBench(ctx, client, *account, *amount, *count, *concurrency)
		fmt.Printf("Completed %d requests in %v (failed %d)\n", result.total, result.elapsed, result.failed)
		fmt.Printf("TPS: %.2f\n", result.tps())
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func printJSON(v any, err error) error {
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "bankctl:", err)
	os.Exit(1)
}
