package domain

// Balance is one ledger row: how much of one token type an account has on
// deposit with the exchange. Amount is always at NormalPrecision and never
// negative in any observable state.
type Balance struct {
	Account string `json:"account"`
	Asset   Asset  `json:"asset"`
}

// Market groups every tradable pair that shares a quote asset. Its name is
// the quote symbol folded to lower case. Bases maps pair name to the base
// asset descriptor.
type Market struct {
	Name  string           `json:"name"`
	Quote Asset            `json:"quote"`
	Bases map[string]Asset `json:"bases"`
}

// PairStat records the last trade price for one market pair. The price is
// kept at the quote asset's declared precision, not the normalized one.
type PairStat struct {
	Pair  string `json:"pair"`
	Price Asset  `json:"price"`
}

// Config is the one-time exchange configuration written by Init. UserPays
// is retained from deployments where end users fund their own record
// storage; the engine only reads Initialized.
type Config struct {
	UserPays    bool `json:"user_pays"`
	Initialized bool `json:"initialized"`
}
