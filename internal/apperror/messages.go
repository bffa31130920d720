package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeConfigurationError: "Configuration error",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "Unknown error",

	CodeDataUnavailable:          "Exchange data unavailable",
	CodeInvalidOrderbook:         "Invalid order book",
	CodeFeeQuoteFailed:           "Failed to quote fee",
	CodeBalanceFetchFailed:       "Failed to fetch balances",
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeCircuitOpen:              "Circuit breaker is open",
	CodeCircuitHalfOpen:          "Circuit breaker is half-open, too many requests",

	CodeComputationInfeasible: "Computation infeasible",
	CodeInsufficientLiquidity: "Insufficient liquidity for the requested amount",

	CodeCycleNotTradable:      "Cycle is not tradable",
	CodeCycleNotFound:         "Cycle not found",
	CodeFeeCurrencyMismatch:   "Fee is not charged in the running currency",
	CodeNegativeRunningAmount: "Running amount is not positive after fees",
	CodeOrderSubmitFailed:     "Failed to submit orders",

	CodeExchangeNotFound:  "Exchange not found",
	CodeExchangeInactive:  "Exchange is inactive",
	CodePollerRunning:     "Poller already running",
	CodePollerStopTimeout: "Poller did not stop in time",

	CodePublishFailed: "Failed to publish opportunity",
	CodeStoreFailed:   "Failed to store opportunity",
}
