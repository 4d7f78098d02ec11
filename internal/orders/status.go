package orders

var transitions = map[string][]string{
	StatusAccepted:            {StatusConfirmed, StatusCancelled},
	StatusConfirmed:           {StatusPackageCreated, StatusCancelled},
	StatusPackageCreated:      {StatusPickupSlotRetrieved, StatusCancelled},
	StatusPickupSlotRetrieved: {StatusInvoiceGenerated, StatusCancelled},
	StatusInvoiceGenerated:    {StatusShipLabelGenerated, StatusCancelled},
	StatusShipLabelGenerated:  {StatusShipped, StatusCancelled},
	StatusShipped:             {StatusDelivered},
}

// CanTransition reports whether the graph allows from -> to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return status == StatusCancelled || status == StatusDelivered
}

// progress orders the forward path. CANCELLED and unknown statuses are -1.
var progress = map[string]int{
	StatusAccepted:            0,
	StatusConfirmed:           1,
	StatusPackageCreated:      2,
	StatusPickupSlotRetrieved: 3,
	StatusInvoiceGenerated:    4,
	StatusShipLabelGenerated:  5,
	StatusShipped:             6,
	StatusDelivered:           7,
}

func stage(status string) int {
	if n, ok := progress[status]; ok {
		return n
	}
	return -1
}

// reached reports whether status is at or past target on the forward path.
func reached(status, target string) bool {
	return stage(status) >= stage(target) && stage(status) >= 0
}
