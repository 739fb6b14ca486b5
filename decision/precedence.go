package decision

// intentClass groups intents that share a conflict-resolution order.
type intentClass int

const (
	// irrigationClass covers action-timing intents where current weather
	// outranks everything else.
	irrigationClass intentClass = iota
	// statusClass covers status and planning intents where the crop's
	// developmental state leads.
	statusClass
)

func classOf(intent Intent) intentClass {
	switch intent {
	case IntentIrrigation, IntentWeather:
		return irrigationClass
	default:
		return statusClass
	}
}

// precedenceTable fixes, per intent class, which evaluator wins when
// opinions conflict. The order is data so conflicts resolve identically on
// every run; nothing depends on which goroutine finished first.
var precedenceTable = map[intentClass][]Source{
	irrigationClass: {SourceWeather, SourceRisk, SourceCropStage, SourceContext},
	statusClass:     {SourceCropStage, SourceRisk, SourceWeather, SourceContext},
}

// Precedence returns the conflict-resolution order for an intent.
func Precedence(intent Intent) []Source {
	order := precedenceTable[classOf(intent)]
	return append([]Source(nil), order...)
}
