package fetcher

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Dhairya-911/vedang-portfolio/internal/partition"
	"github.com/Dhairya-911/vedang-portfolio/pkg/failure"
)

// Fetcher is the network boundary. Fetch returns whatever the origin sends,
// any status included; only transport failures are errors.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (partition.Response, failure.ClassifiedError)
	FetchOK(ctx context.Context, target url.URL) (partition.Response, failure.ClassifiedError)
}
