package registry

// Fixed message vocabulary. Usage errors restate the exact expected argument
// order so the caller can self-correct without documentation.
const (
	MsgStreamNotFound = "Stream not found."
	MsgStakeNotFound  = "Stake not found."
	MsgNoRoute        = "No route found for this pair."

	UsageStreamCreate   = "Usage: stream create <recipient> <amount> <duration-seconds> [name...]"
	UsageStreamCancel   = "Usage: stream cancel <stream-id>"
	UsageStreamList     = "Usage: stream list [incoming|outgoing|all]"
	UsageStreamInfo     = "Usage: stream info <stream-id>"
	UsageStreamWithdraw = "Usage: stream withdraw <stream-id> [amount]"
	UsageStreamTransfer = "Usage: stream transfer <stream-id> <new-recipient>"
	UsageStreamTopup    = "Usage: stream topup <stream-id> <amount>"
	UsageStream         = "Usage: stream <create|cancel|list|info|withdraw|transfer|topup> ..."
	UsageVestingCreate  = "Usage: vesting create <recipient> <total-amount> <cliff-days> <vesting-days> [name...]"
	UsageVestingInfo    = "Usage: vesting info <vesting-id>"
	UsageVesting        = "Usage: vesting <create|info> ..."
	UsageSwap           = "Usage: swap <from-symbol> <to-symbol> <amount> [--slippage=<percent>]"
	UsageSimulateSwap   = "Usage: simulate-swap <from-symbol> <to-symbol> <amount>"
	UsagePrice          = "Usage: price <symbol>"
	UsagePriceImpact    = "Usage: price-impact <from-symbol> <to-symbol> <amount>"
	UsageStake          = "Usage: stake <amount> [--lock-period=flexible|week|month|quarter|year]"
	UsageUnstake        = "Usage: unstake <stake-id> [--force]"
	UsageRewards        = "Usage: rewards claim [stake-id]"
	UsageHistory        = "Usage: history [limit]"
)
