// Package wallet serves the read-only wallet view backed by the remote API.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dunetube/dunetube/api/web"
	"github.com/dunetube/dunetube/api/weberr"
	"github.com/dunetube/dunetube/i18n"
	"github.com/dunetube/dunetube/remote"
)

type Source interface {
	Transactions(ctx context.Context) ([]remote.Transaction, error)
	Invoices(ctx context.Context) ([]remote.Invoice, error)
}

func remoteError(r *http.Request, err error) error {
	if errors.Is(err, remote.ErrAuthRequired) {
		msg := i18n.Message(web.Language(r), i18n.MsgAuthRequired)
		return weberr.NewError(err, msg, http.StatusUnauthorized)
	}
	return weberr.BadGateway(err)
}

func HandleTransactions(src Source) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		txs, err := src.Transactions(ctx)
		if err != nil {
			return remoteError(r, fmt.Errorf("listing transactions: %w", err))
		}
		return web.Respond(ctx, w, txs, http.StatusOK)
	}
}

func HandleInvoices(src Source) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		invoices, err := src.Invoices(ctx)
		if err != nil {
			return remoteError(r, fmt.Errorf("listing invoices: %w", err))
		}
		return web.Respond(ctx, w, invoices, http.StatusOK)
	}
}
