package observability

const (
	PackageNameAttribute       = "android.package.name"
	BinaryKindAttribute        = "android.binary.kind"
	OutcomeStatusNameAttribute = "android.outcome.status"
	RouteAttribute             = "http.route"

	SuccessStatus = "success"
	FailureStatus = "failure"
)

func SuccessOrFailureStatus(succeeded bool) string {
	if succeeded {
		return SuccessStatus
	}
	return FailureStatus
}
