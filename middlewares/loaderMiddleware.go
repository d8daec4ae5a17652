package middlewares

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/shopspring/decimal"
)

// batchWindow is how long a loader waits to collect keys before reading.
const batchWindow = time.Millisecond

type loadersKey struct{}

// Loaders are built per request so nothing is cached across requests.
type Loaders struct {
	partyOutstanding *dataloader.Loader[PartyKey, decimal.Decimal]
}

func NewLoaders(engine *models.Engine) *Loaders {
	outstanding := &partyOutstandingReader{parties: engine.Parties}
	return &Loaders{
		partyOutstanding: dataloader.NewBatchedLoader(
			outstanding.getOutstanding,
			dataloader.WithWait[PartyKey, decimal.Decimal](batchWindow),
		),
	}
}

func LoaderMiddleware(engine *models.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithLoaders(c.Request.Context(), NewLoaders(engine))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, loaders)
}

// For returns the request's loaders. It panics outside LoaderMiddleware.
func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey{}).(*Loaders)
}

// failAll answers every key of a batch with the same error.
func failAll[T any](n int, err error) []*dataloader.Result[T] {
	results := make([]*dataloader.Result[T], n)
	for i := range results {
		results[i] = &dataloader.Result[T]{Error: err}
	}
	return results
}
