package tracing

// BalanceChangeReason is a description of the reason why a balance was changed.
type BalanceChangeReason int

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	BalanceChangeGenesis
	BalanceChangeTransfer
	BalanceChangeEnergyBuy
	BalanceChangeEnergyRefund
	BalanceChangeFee
	BalanceChangeSelfDestruct
	BalanceChangeEngineIncrease // credited by the engine through the host
	BalanceChangeCreatePreserve // balance carried over into a newly created contract
)

// NonceChangeReason is a description of the reason why a nonce was changed.
type NonceChangeReason int

const (
	NonceChangeUnspecified NonceChangeReason = iota
	NonceChangeTransaction
	NonceChangeContractCreator
	NonceChangeNewContract
)

// String returns a human-readable string for the reason.
func (r BalanceChangeReason) String() string {
	switch r {
	case BalanceChangeUnspecified:
		return "unspecified"
	case BalanceChangeGenesis:
		return "genesis"
	case BalanceChangeTransfer:
		return "transfer"
	case BalanceChangeEnergyBuy:
		return "energy_buy"
	case BalanceChangeEnergyRefund:
		return "energy_refund"
	case BalanceChangeFee:
		return "fee"
	case BalanceChangeSelfDestruct:
		return "selfdestruct"
	case BalanceChangeEngineIncrease:
		return "engine_increase"
	case BalanceChangeCreatePreserve:
		return "create_preserve"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r NonceChangeReason) String() string {
	switch r {
	case NonceChangeUnspecified:
		return "unspecified"
	case NonceChangeTransaction:
		return "transaction"
	case NonceChangeContractCreator:
		return "contract_creator"
	case NonceChangeNewContract:
		return "new_contract"
	}
	return "unknown"
}
