package fulfillment

import (
	"fmt"
	"sort"

	"github.com/agamariel/flowershop/internal/models"
)

// transitions таблица допустимых переходов. Строится один раз и только читается.
var transitions = map[models.DeliveryStep][]models.DeliveryStep{
	models.StepPendingConfirmation: {
		models.StepPreparing,
		models.StepDelivering,
		models.StepDelivered,
		models.StepDeliveryFailed,
	},
	models.StepPreparing: {
		models.StepDelivering,
		models.StepDelivered,
		models.StepDeliveryFailed,
	},
	models.StepDelivering: {
		models.StepDelivered,
		models.StepDeliveryFailed,
	},
	models.StepDelivered:      {},
	models.StepDeliveryFailed: {},
}

// stepRank порядок шагов, используется только для разрешения полных совпадений.
var stepRank = func() map[models.DeliveryStep]int {
	m := make(map[models.DeliveryStep]int, len(models.AllDeliverySteps))
	for i, s := range models.AllDeliverySteps {
		m[s] = i
	}
	return m
}()

// CurrentStep возвращает шаг события с наибольшим EventAt.
// ok == false, если событий нет. Результат не зависит от порядка событий в срезе:
// при равном EventAt побеждает больший ID, затем более поздний шаг.
func CurrentStep(events []models.DeliveryEvent) (step models.DeliveryStep, ok bool) {
	var latest *models.DeliveryEvent
	for i := range events {
		e := &events[i]
		if latest == nil || later(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return "", false
	}
	return latest.Step, true
}

func later(a, b *models.DeliveryEvent) bool {
	if !a.EventAt.Equal(b.EventAt) {
		return a.EventAt.After(b.EventAt)
	}
	if a.ID != b.ID {
		return a.ID > b.ID
	}
	return stepRank[a.Step] > stepRank[b.Step]
}

// AllowedNextSteps возвращает шаги, в которые можно перейти из текущего.
// Для заказа без событий допустим любой шаг.
func AllowedNextSteps(current models.DeliveryStep, started bool) []models.DeliveryStep {
	if !started {
		return append([]models.DeliveryStep(nil), models.AllDeliverySteps...)
	}
	return append([]models.DeliveryStep{}, transitions[current]...)
}

// IsTerminal сообщает, что из шага нет переходов.
func IsTerminal(step models.DeliveryStep) bool {
	next, known := transitions[step]
	return known && len(next) == 0
}

// CheckTransition проверяет, что шаг next можно добавить к журналу events.
func CheckTransition(events []models.DeliveryEvent, next models.DeliveryStep) error {
	if _, known := transitions[next]; !known {
		return fmt.Errorf("%w: unknown delivery step %q", ErrValidation, next)
	}

	current, started := CurrentStep(events)
	for _, allowed := range AllowedNextSteps(current, started) {
		if allowed == next {
			return nil
		}
	}

	if IsTerminal(current) {
		return fmt.Errorf("%w: order is in terminal step %s", ErrInvalidTransition, current)
	}
	return fmt.Errorf("%w: %s -> %s is not allowed", ErrInvalidTransition, current, next)
}

// NextSteps возвращает шаги, допустимые для заказа с загруженным журналом.
// У отменённого заказа переходов нет.
func NextSteps(order *models.Order) []models.DeliveryStep {
	if order.CancelledAt != nil {
		return []models.DeliveryStep{}
	}
	current, started := CurrentStep(order.Events)
	return AllowedNextSteps(current, started)
}

// CheckOrderTransition проверяет, что шаг next можно добавить к заказу.
func CheckOrderTransition(order *models.Order, next models.DeliveryStep) error {
	if _, known := transitions[next]; !known {
		return fmt.Errorf("%w: unknown delivery step %q", ErrValidation, next)
	}
	if order.CancelledAt != nil {
		return fmt.Errorf("%w: order %s is cancelled", ErrInvalidTransition, order.Code)
	}
	return CheckTransition(order.Events, next)
}

// SortedEvents возвращает копию журнала в хронологическом порядке.
func SortedEvents(events []models.DeliveryEvent) []models.DeliveryEvent {
	sorted := append([]models.DeliveryEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return later(&sorted[j], &sorted[i])
	})
	return sorted
}
