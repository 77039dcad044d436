package fulfillment

import "github.com/agamariel/flowershop/internal/models"

// BuildView собирает представление заказа для оператора. Текущий шаг
// вычисляется заново при каждом вызове.
func BuildView(order *models.Order, withEvents bool) (*models.OrderView, error) {
	revenue, err := Reconcile(order)
	if err != nil {
		return nil, err
	}

	view := &models.OrderView{
		OrderID:       order.ID,
		OrderCode:     order.Code,
		Total:         order.Total,
		Revenue:       revenue,
		PaymentStatus: PaymentStatusOf(order),
		CancelledAt:   order.CancelledAt,
		Refund:        order.Refund,
	}

	current, started := CurrentStep(order.Events)
	if started {
		view.CurrentStep = &current
	}
	view.AllowedNextSteps = NextSteps(order)
	view.CanCancel = IsCancellable(order)

	if withEvents {
		view.Events = SortedEvents(order.Events)
	}
	return view, nil
}

// BuildViews собирает представления для списка заказов.
func BuildViews(orders []*models.Order) ([]*models.OrderView, error) {
	views := make([]*models.OrderView, 0, len(orders))
	for _, o := range orders {
		v, err := BuildView(o, false)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}
