package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"nvsview/internal/client"
	"nvsview/internal/config"
	"nvsview/internal/types"
)

type SearchCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
}

func NewSearchCommand(stdout, stderr io.Writer, loadConfig func() (config.Config, error), newClient clientFactory) *SearchCommand {
	return &SearchCommand{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: loadConfig,
		newClient:  newClient,
	}
}

func (c *SearchCommand) Run(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	searchType := fs.String("type", string(types.SearchTypeExact), "search type: exact|fuzzy|phrase")
	var scopes stringList
	fs.Var(&scopes, "in", "where to search: playtext|variants|commentary (repeatable, default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return errors.New("search query is required")
	}
	req := client.SearchRequest{Query: query}
	switch types.SearchType(strings.ToLower(strings.TrimSpace(*searchType))) {
	case types.SearchTypeExact:
		req.Type = types.SearchTypeExact
	case types.SearchTypeFuzzy:
		req.Type = types.SearchTypeFuzzy
	case types.SearchTypePhrase:
		req.Type = types.SearchTypePhrase
	default:
		return errors.New("invalid type: must be exact, fuzzy, or phrase")
	}
	contents, err := resolveSearchScopes(scopes)
	if err != nil {
		return err
	}
	req.Contents = contents

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	results, err := c.newClient(cfg).Search(ctx, req)
	if err != nil {
		return err
	}
	if results.Empty() {
		_, err := fmt.Fprintln(c.stdout, "No results for your search term were found.")
		return err
	}
	printSearchResults(c.stdout, results)
	return nil
}

func resolveSearchScopes(values []string) ([]types.SearchScope, error) {
	all := []types.SearchScope{types.SearchScopePlaytext, types.SearchScopeVariants, types.SearchScopeCommentary}
	if len(values) == 0 {
		return all, nil
	}
	var out []types.SearchScope
	seen := map[types.SearchScope]bool{}
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			var scope types.SearchScope
			switch strings.ToLower(strings.TrimSpace(part)) {
			case "playtext", "lines":
				scope = types.SearchScopePlaytext
			case "variants":
				scope = types.SearchScopeVariants
			case "commentary", "commentaries":
				scope = types.SearchScopeCommentary
			default:
				return nil, errors.New("invalid scope: must be playtext, variants, or commentary")
			}
			if !seen[scope] {
				seen[scope] = true
				out = append(out, scope)
			}
		}
	}
	return out, nil
}

func printSearchResults(output io.Writer, results *types.SearchResults) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "KIND\tID\tMATCHES")
	for _, match := range results.Lines {
		fmt.Fprintf(writer, "line\t%s\t%s\n", match.ID, strings.Join(match.Matches, ", "))
	}
	for _, match := range results.Variants {
		fmt.Fprintf(writer, "variant\t%s\t%s\n", match.ID, strings.Join(match.Matches, ", "))
	}
	for _, match := range results.Commentaries {
		fmt.Fprintf(writer, "commentary\t%s\t%s\n", match.CommID, strings.Join(match.Matches, ", "))
	}
	_ = writer.Flush()
	if len(results.Characters) > 0 {
		fmt.Fprintf(output, "speakers: %s\n", strings.Join(results.Characters, ", "))
	}
}
