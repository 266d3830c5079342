package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerServiceName is the fully-qualified name of the admin ledger service.
const LedgerServiceName = "moneybot.v1.LedgerService"

const (
	LedgerServiceGetBalancesProcedure = "/" + LedgerServiceName + "/GetBalances"
	LedgerServiceListEntriesProcedure = "/" + LedgerServiceName + "/ListEntries"
)

// LedgerServiceHandler is implemented by LedgerService.
type LedgerServiceHandler interface {
	GetBalances(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
	ListEntries(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error)
}

// NewLedgerServiceHandler builds an HTTP handler serving svc. The returned
// path is the mount prefix.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	getBalances := connect.NewUnaryHandler(LedgerServiceGetBalancesProcedure, svc.GetBalances, opts...)
	listEntries := connect.NewUnaryHandler(LedgerServiceListEntriesProcedure, svc.ListEntries, opts...)

	return "/" + LedgerServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceGetBalancesProcedure:
			getBalances.ServeHTTP(w, r)
		case LedgerServiceListEntriesProcedure:
			listEntries.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// LedgerServiceClient calls the admin ledger service.
type LedgerServiceClient struct {
	getBalances *connect.Client[emptypb.Empty, structpb.Struct]
	listEntries *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	return &LedgerServiceClient{
		getBalances: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+LedgerServiceGetBalancesProcedure, opts...),
		listEntries: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+LedgerServiceListEntriesProcedure, opts...),
	}
}

func (c *LedgerServiceClient) GetBalances(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListEntries(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return c.listEntries.CallUnary(ctx, req)
}
