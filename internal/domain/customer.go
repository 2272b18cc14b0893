package domain

// Customer is the subset of the customer-service representation this service relies on.
type Customer struct {
	ID           string `json:"id"`
	TypeCustomer string `json:"typeCustomer"`
}
