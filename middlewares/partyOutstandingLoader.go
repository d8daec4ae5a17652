package middlewares

import (
	"context"

	"bitbucket.org/mmdatafocus/books_ledger/models"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/shopspring/decimal"
)

type PartyKey struct {
	PartyType models.PartyType
	PartyId   int
}

type partyOutstandingReader struct {
	parties *models.PartyBalanceCalculator
}

// getOutstanding groups the keys by party type so each type costs one
// batched read.
func (r *partyOutstandingReader) getOutstanding(ctx context.Context, keys []PartyKey) []*dataloader.Result[decimal.Decimal] {
	idsByType := make(map[models.PartyType][]int)
	for _, k := range keys {
		idsByType[k.PartyType] = append(idsByType[k.PartyType], k.PartyId)
	}

	outstanding := make(map[PartyKey]decimal.Decimal, len(keys))
	for partyType, ids := range idsByType {
		balances, err := r.parties.GetOutstandingForParties(ctx, partyType, ids)
		if err != nil {
			return failAll[decimal.Decimal](len(keys), err)
		}
		for id, balance := range balances {
			outstanding[PartyKey{PartyType: partyType, PartyId: id}] = balance
		}
	}

	results := make([]*dataloader.Result[decimal.Decimal], 0, len(keys))
	for _, k := range keys {
		results = append(results, &dataloader.Result[decimal.Decimal]{Data: outstanding[k]})
	}
	return results
}

func GetPartyOutstanding(ctx context.Context, partyType models.PartyType, partyId int) (decimal.Decimal, error) {
	loaders := For(ctx)
	return loaders.partyOutstanding.Load(ctx, PartyKey{PartyType: partyType, PartyId: partyId})()
}

func GetPartiesOutstanding(ctx context.Context, partyType models.PartyType, partyIds []int) ([]decimal.Decimal, []error) {
	keys := make([]PartyKey, 0, len(partyIds))
	for _, id := range partyIds {
		keys = append(keys, PartyKey{PartyType: partyType, PartyId: id})
	}
	loaders := For(ctx)
	return loaders.partyOutstanding.LoadMany(ctx, keys)()
}
