package classifier

import "strings"

// Display categories derived from a Result. They are never stored.
const (
	CategoryFree       = "Free Email"
	CategoryDisposable = "Disposable Email"
	CategoryRoleBased  = "Role-Based Email"
	CategoryCustom     = "Custom Email"
)

// Result contains all classification results for one address.
// The flags are computed independently and may overlap when the
// reference lists do.
type Result struct {
	IsFreeEmail       bool   `json:"isFreeEmail"`
	IsDisposableEmail bool   `json:"isDisposableEmail"`
	IsRoleBasedEmail  bool   `json:"isRoleBasedEmail"`
	Domain            string `json:"domain"`
}

// Category returns the label a caller renders for the result.
func (r Result) Category() string {
	switch {
	case r.IsFreeEmail:
		return CategoryFree
	case r.IsDisposableEmail:
		return CategoryDisposable
	case r.IsRoleBasedEmail:
		return CategoryRoleBased
	default:
		return CategoryCustom
	}
}

// Classify performs all classifications on an already split address.
// Both parts are expected lower-cased; Classify lower-cases them again so
// callers outside the pipeline get the same answer.
func Classify(lists *Lists, domain, localPart string) Result {
	domain = strings.ToLower(strings.TrimSpace(domain))
	localPart = strings.ToLower(strings.TrimSpace(localPart))

	return Result{
		IsFreeEmail:       lists.IsFreeProvider(domain),
		IsDisposableEmail: lists.IsDisposable(domain),
		IsRoleBasedEmail:  lists.IsRoleAccount(localPart),
		Domain:            domain,
	}
}
