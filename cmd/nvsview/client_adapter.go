package main

import (
	"context"

	"nvsview/internal/client"
	"nvsview/internal/config"
	"nvsview/internal/types"
)

type clientFactory func(cfg config.Config) commandClient

type commandClient interface {
	Lines(ctx context.Context, start, end int) ([]*types.Line, error)
	Search(ctx context.Context, req client.SearchRequest) (*types.SearchResults, error)
	Witnesses(ctx context.Context) (*types.WitnessInfo, error)
}

func newEditionClient(cfg config.Config) commandClient {
	return client.New(cfg)
}
