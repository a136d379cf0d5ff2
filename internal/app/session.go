package app

import (
	"github.com/sirupsen/logrus"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/httpx"
	"github.com/solterm/solterm/internal/logging"
	"github.com/solterm/solterm/internal/solana"
	"github.com/solterm/solterm/internal/staking"
	"github.com/solterm/solterm/internal/store"
	"github.com/solterm/solterm/internal/streaming"
	"github.com/solterm/solterm/internal/swap"
	"github.com/solterm/solterm/internal/terminal"
)

// session holds the wired service graph behind one terminal or exec run.
type session struct {
	parser *terminal.Parser
	ledger *store.Ledger
	log    *logrus.Logger
}

func (s *runtimeState) openSession() (*session, error) {
	if s.session != nil {
		return s.session, nil
	}
	settings := s.settings

	log := logging.New(settings.LogLevel, settings.LogFile)

	wallet, err := solana.LoadKeypairWallet(settings.KeypairPath)
	if err != nil {
		return nil, err
	}
	owner := wallet.PublicKey()

	conn := solana.NewRPCConnection(settings.RPCURL, logging.Component(log, "rpc"))

	ledger, err := store.Open(settings.LedgerPath, settings.LedgerLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open ledger", err)
	}

	httpClient := httpx.New(settings.Timeout, settings.Retries)
	router := swap.NewClient(httpClient, settings.AggregatorURL)

	streamClient := streaming.NewProgramClient(conn, wallet, logging.Component(log, "stream-program"))
	streams := streaming.NewService(ledger, streamClient, owner, logging.Component(log, "streaming"))
	swaps := swap.NewService(router, conn, wallet, logging.Component(log, "swap"))
	stakes, err := staking.NewService(ledger, conn, owner, logging.Component(log, "staking"))
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}

	parser := terminal.New(streams, swaps, stakes, conn, wallet, logging.Component(log, "terminal"))

	s.session = &session{parser: parser, ledger: ledger, log: log}
	return s.session, nil
}

func (s *session) Close() {
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}
