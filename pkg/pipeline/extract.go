package pipeline

import (
	"context"
	"sync"

	"github.com/modguard/modguard/pkg/depgraph"
	"github.com/modguard/modguard/pkg/extract"
)

// extractModules computes the top-level module map for every graph node
// with a bounded worker pool. Extraction is pure per-package work, so
// packages fan out across workers and the results merge into one map.
// The root node's modules come from the project directory itself.
func extractModules(ctx context.Context, g *depgraph.Graph, projectDir string, workers int) (map[string][]string, error) {
	nodes := g.Nodes()

	type result struct {
		name    string
		modules []string
	}

	jobs := make(chan *depgraph.Node)
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				results <- result{name: n.Name, modules: extract.TopLevelModules(n.Files)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, n := range nodes {
			if n.IsRoot() {
				continue
			}
			select {
			case jobs <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	modules := make(map[string][]string, len(nodes))
	for r := range results {
		if len(r.modules) > 0 {
			modules[r.name] = r.modules
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if projectDir != "" {
		own, err := extract.ProjectModules(projectDir)
		if err != nil {
			return nil, err
		}
		if len(own) > 0 {
			modules[g.Root().Name] = own
		}
	}
	return modules, nil
}
