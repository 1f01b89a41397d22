// Package papertrade implements a paper-trading ledger and rebalancing
// engine. It turns a ranked list of buy candidates into simulated portfolio
// actions (entries, exits, pyramid adds, stop-loss exits) while keeping an
// auditable record of positions, cash, and trades.
//
// The core pieces are:
//   - Store: the durable ledger contract. Every mutation goes through the
//     atomic CommitTrade primitive; MemoryStore implements it in memory and
//     sqlstore implements it on sqlite.
//   - Executor: applies a single buy or sell, maintaining the weighted
//     average cost basis and realized P&L.
//   - RuleEngine: inspects open positions against stop-loss and pyramid
//     thresholds, in strict precedence order.
//   - Rebalancer: runs one full cycle against ranked candidates under a
//     cash budget, with deterministic trade ordering.
//   - Reporter: read-only projections (status, history, cash check) over
//     ledger state.
//
// Trades are individually atomic. A cycle interrupted mid-way leaves every
// prior commit valid and durable; the engine never rolls back committed
// trades within the same cycle.
//
// This package serves as the foundational logic for the `ptc` command-line
// tool.
package papertrade
