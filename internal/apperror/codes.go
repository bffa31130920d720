package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Market data errors
const (
	CodeDataUnavailable          Code = "DATA_UNAVAILABLE"
	CodeInvalidOrderbook         Code = "INVALID_ORDERBOOK"
	CodeFeeQuoteFailed           Code = "FEE_QUOTE_FAILED"
	CodeBalanceFetchFailed       Code = "BALANCE_FETCH_FAILED"
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen          Code = "CIRCUIT_HALF_OPEN"
)

// Sequence engine errors
const (
	// Analysis
	CodeComputationInfeasible Code = "COMPUTATION_INFEASIBLE"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"

	// Order generation
	CodeCycleNotTradable      Code = "CYCLE_NOT_TRADABLE"
	CodeCycleNotFound         Code = "CYCLE_NOT_FOUND"
	CodeFeeCurrencyMismatch   Code = "FEE_CURRENCY_MISMATCH"
	CodeNegativeRunningAmount Code = "NEGATIVE_RUNNING_AMOUNT"
	CodeOrderSubmitFailed     Code = "ORDER_SUBMIT_FAILED"

	// Controller
	CodeExchangeNotFound  Code = "EXCHANGE_NOT_FOUND"
	CodeExchangeInactive  Code = "EXCHANGE_INACTIVE"
	CodePollerRunning     Code = "POLLER_ALREADY_RUNNING"
	CodePollerStopTimeout Code = "POLLER_STOP_TIMEOUT"

	// Opportunity sinks
	CodePublishFailed Code = "PUBLISH_FAILED"
	CodeStoreFailed   Code = "STORE_FAILED"
)

// Kind groups codes by how callers react to them.
type Kind int

const (
	KindInternal    Kind = iota
	KindInput            // caller passed something unusable
	KindNotFound         // named exchange or cycle does not exist
	KindState            // operation not allowed in the current state
	KindUnavailable      // transient, the next tick may succeed
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

var kinds = map[Code]Kind{
	CodeInvalidInput:          KindInput,
	CodeConfigurationError:    KindInput,
	CodeInvalidOrderbook:      KindInput,
	CodeFeeCurrencyMismatch:   KindInput,
	CodeNegativeRunningAmount: KindInput,

	CodeCycleNotFound:    KindNotFound,
	CodeExchangeNotFound: KindNotFound,

	CodeCycleNotTradable:      KindState,
	CodeExchangeInactive:      KindState,
	CodePollerRunning:         KindState,
	CodeComputationInfeasible: KindState,
	CodeInsufficientLiquidity: KindState,

	CodeDataUnavailable:          KindUnavailable,
	CodeRateLimitExceeded:        KindUnavailable,
	CodeFeeQuoteFailed:           KindUnavailable,
	CodeBalanceFetchFailed:       KindUnavailable,
	CodeWebSocketConnectionError: KindUnavailable,
	CodeCircuitOpen:              KindUnavailable,
	CodeCircuitHalfOpen:          KindUnavailable,
	CodePublishFailed:            KindUnavailable,
	CodeStoreFailed:              KindUnavailable,
}
