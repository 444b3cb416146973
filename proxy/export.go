package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"rickmorty-gateway/proxy/application"
	"rickmorty-gateway/proxy/domain"

	"golang.org/x/sync/errgroup"
)

// Exporter materializa o catálogo completo do upstream em disco: um arquivo
// JSON por tipo de recurso, agregando todas as páginas. Os três recursos são
// buscados em paralelo; a falha de um cancela os demais e nenhum resultado
// parcial é declarado sucesso.
type Exporter struct {
	Svc *application.Service
	// Dir é o diretório de saída. Criado se não existir.
	Dir string
	// Logf é chamado ao fim de cada recurso e do export. Default log.Printf.
	Logf func(format string, args ...any)
}

// Run executa o export completo, bloqueando até terminar.
func (e *Exporter) Run(ctx context.Context) error {
	logf := e.Logf
	if logf == nil {
		logf = log.Printf
	}

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir %s: %w", e.Dir, err)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	for _, rt := range domain.ResourceTypes() {
		g.Go(func() error {
			page, err := e.Svc.FetchAll(gctx, rt, nil)
			if err != nil {
				return fmt.Errorf("export: fetch all %s: %w", rt, err)
			}

			b, err := json.MarshalIndent(page.Results, "", "  ")
			if err != nil {
				return fmt.Errorf("export: encode %s: %w", rt, err)
			}

			path := filepath.Join(e.Dir, string(rt)+"s.json")
			if err := os.WriteFile(path, b, 0o644); err != nil {
				return fmt.Errorf("export: write %s: %w", path, err)
			}

			logf("export: wrote %d %s records to %s", len(page.Results), rt, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logf("export: finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
