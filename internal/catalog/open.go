package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"venue-recommender/internal/common/config"
	httpclient "venue-recommender/internal/common/http"
	"venue-recommender/internal/common/logger"
)

// Deps carries the clients a remote source may need. Only the one matching
// the configured source has to be set.
type Deps struct {
	HTTP *httpclient.Client
	DB   *sql.DB
	ES   *elasticsearch.Client
}

// OpenSource builds the configured source. Remote sources are wrapped in a
// circuit breaker.
func OpenSource(cfg config.CatalogConfig, deps Deps, log logger.Logger) (Source, error) {
	timeout := time.Duration(cfg.FetchTimeout) * time.Millisecond

	var src Source
	switch cfg.Source {
	case config.SourceStatic, "":
		return DefaultStaticSource(), nil
	case config.SourceHTTP:
		client := deps.HTTP
		if client == nil {
			client = httpclient.NewClient(timeout)
		}
		src = NewHTTPSource(client, cfg.BaseURL, cfg.VenuesPath, cfg.EventsPath, cfg.MaxItems)
	case config.SourcePostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("catalog source postgres needs a database connection")
		}
		src = NewPostgresSource(deps.DB, cfg.MaxItems)
	case config.SourceElasticsearch:
		if deps.ES == nil {
			return nil, fmt.Errorf("catalog source elasticsearch needs a client")
		}
		src = NewElasticsearchSource(deps.ES, cfg.VenueIndex, cfg.EventIndex, cfg.MaxItems)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
	return NewBreakerSource(src, cfg.Breaker, timeout, log), nil
}
