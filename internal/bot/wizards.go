package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"courierbot/internal/dialog"
	"courierbot/internal/domain"
	"courierbot/internal/events"
	"courierbot/internal/metrics"
	"courierbot/internal/models"

	"github.com/rs/zerolog"
)

// Scratch keys shared between wizard steps.
const (
	keyIsExisting      = "is_existing"
	keyCustomerID      = "customer_id"
	keyCustomerEmail   = "customer_email"
	keyOriginAddress   = "origin_address"
	keyPickupWindow    = "pickup_window"
	keyDestination     = "destination_address"
	keyReceivingWindow = "receiving_window"
	keyItemType        = "item_type"
	keyItemCount       = "item_count"
	keyItemWeight      = "item_total_weight"
	keyOrderIDs        = "order_ids"
	keyStatusLines     = "status_lines"
)

// Wizards builds and registers the three dialogs of the intake workflow.
type Wizards struct {
	store    domain.RecordStore
	resolver domain.TimeResolver
	bus      domain.EventPublisher
	notifier domain.Notifier
	narrator *Narrator
	logger   *zerolog.Logger
}

func NewWizards(
	store domain.RecordStore,
	resolver domain.TimeResolver,
	bus domain.EventPublisher,
	notifier domain.Notifier,
	narrator *Narrator,
	logger *zerolog.Logger,
) *Wizards {
	return &Wizards{
		store:    store,
		resolver: resolver,
		bus:      bus,
		notifier: notifier,
		narrator: narrator,
		logger:   logger,
	}
}

// Register installs the prompt library and the wizard dialogs into the engine.
func (w *Wizards) Register(engine *dialog.Engine) {
	engine.RegisterPrompt(models.PromptText, dialog.TextPrompt{})
	engine.RegisterPrompt(models.PromptNumber, dialog.NumberPrompt{})
	engine.RegisterPrompt(models.PromptChoice, dialog.ChoicePrompt{})
	engine.RegisterPrompt(models.PromptDateTime, dialog.DateTimePrompt{Resolver: w.resolver})
	engine.RegisterPrompt(models.PromptCustomerNumber, dialog.CustomerNumberPrompt{Store: w.store})
	engine.RegisterPrompt(models.PromptEmail, dialog.EmailPrompt{})

	engine.RegisterDialog(w.mainMenu())
	engine.RegisterDialog(w.bookCourier())
	engine.RegisterDialog(w.checkCourierStatus())
}

func (w *Wizards) mainMenu() *dialog.Dialog {
	return &dialog.Dialog{
		Name: models.DialogMainMenu,
		Steps: []dialog.StepFunc{
			func(sc *dialog.StepContext) (dialog.Action, error) {
				return dialog.Prompt(models.PromptChoice, "What would you like to do?",
					"Book a courier", "Check courier status"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				choice, _ := sc.Result.(string)
				switch {
				case strings.EqualFold(choice, "Book a courier"):
					return dialog.Begin(models.DialogBookCourier), nil
				case strings.EqualFold(choice, "Check courier status"):
					return dialog.Begin(models.DialogCheckStatus), nil
				}
				// The choice prompt already reprompts on any unmatched input,
				// so this only runs on a stale persisted result.
				return dialog.Next(nil), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				// Looping the menu forever
				return dialog.Replace(models.DialogMainMenu), nil
			},
		},
	}
}

func (w *Wizards) bookCourier() *dialog.Dialog {
	return &dialog.Dialog{
		Name: models.DialogBookCourier,
		Steps: []dialog.StepFunc{
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if err := sc.Out.SendText(sc.Context, "Sure, I can help you with that.\nCan you please identify yourself?"); err != nil {
					return dialog.Action{}, err
				}
				return dialog.Prompt(models.PromptChoice, "Are you an existing customer?", "Yes", "No"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if choice, _ := sc.Result.(string); strings.EqualFold(choice, "Yes") {
					sc.Frame.Set(keyIsExisting, true)
					return dialog.Prompt(models.PromptCustomerNumber, "Great, what’s your Customer Number"), nil
				}
				sc.Frame.Set(keyIsExisting, false)
				return dialog.Next(nil), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if sc.Frame.GetBool(keyIsExisting) {
					customer := sc.Result.(*models.Customer)
					sc.Frame.Set(keyCustomerID, customer.ID)
					sc.Frame.Set(keyCustomerEmail, customer.Email)
					return dialog.Next(nil), nil
				}
				return dialog.Prompt(models.PromptEmail, "Can you confirm your email address?"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if !sc.Frame.GetBool(keyIsExisting) {
					email := sc.Result.(string)
					action, err := w.identifyByEmail(sc, email)
					if err != nil || action != nil {
						if action != nil {
							return *action, err
						}
						return dialog.Action{}, err
					}
				}
				return dialog.Prompt(models.PromptText, "What would be the Origin address?"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyOriginAddress, sc.Result.(string))
				return dialog.Prompt(models.PromptDateTime, "Do you have a pickup window?"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				candidates := sc.Result.([]models.TimeCandidate)
				// Earliest candidate wins for pickup.
				sc.Frame.Set(keyPickupWindow, candidates[0].Window)
				return dialog.Prompt(models.PromptText, "What would be the destination address? OR\nWhere would this be going"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyDestination, sc.Result.(string))
				return dialog.Prompt(models.PromptDateTime, "Do you have a receiving window?"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				candidates := sc.Result.([]models.TimeCandidate)
				// Latest candidate wins for receiving.
				sc.Frame.Set(keyReceivingWindow, candidates[len(candidates)-1].Window)
				return dialog.Prompt(models.PromptChoice, "What are you shipping (pallets, carton)",
					models.ItemTypePallets, models.ItemTypeCarton), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyItemType, sc.Result.(string))
				return dialog.Prompt(models.PromptNumber, "How many?"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyItemCount, int64(sc.Result.(float64)))
				return dialog.Prompt(models.PromptNumber, "What’s the total weight"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyItemWeight, int64(sc.Result.(float64)))
				return dialog.Prompt(models.PromptText, "Any special instructions"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				return w.persistOrder(sc, sc.Result.(string))
			},
		},
	}
}

// identifyByEmail resolves the "No" branch of the identity question: adopt an
// already-registered customer, or register a new one and re-query by email to
// learn the generated number. Returns a non-nil action only when the wizard
// must end early.
func (w *Wizards) identifyByEmail(sc *dialog.StepContext, email string) (*dialog.Action, error) {
	ctx := sc.Context

	existing, err := w.store.GetCustomerByEmail(ctx, email)
	if err != nil {
		return w.registrationFailed(sc)
	}

	if existing != nil {
		msg := fmt.Sprintf("This Email address is already registered with us,\n for your future reference customer number associated with this email address is : %d", existing.ID)
		if err := sc.Out.SendText(ctx, msg); err != nil {
			return nil, err
		}
		w.adoptCustomer(sc, existing)
		return nil, nil
	}

	if err := sc.Out.SendText(ctx, "We are registering you, Please wait.."); err != nil {
		return nil, err
	}

	if err := w.store.RegisterCustomer(ctx, email); err != nil {
		w.logger.Error().Err(err).Msg("customer registration failed")
		return w.registrationFailed(sc)
	}

	// Reload after write: the generated number comes from a fresh lookup,
	// not from the insert itself.
	registered, err := w.store.GetCustomerByEmail(ctx, email)
	if err != nil || registered == nil {
		return w.registrationFailed(sc)
	}

	msg := fmt.Sprintf("Your registration was successfull with us, your customer number is : %d", registered.ID)
	if err := sc.Out.SendText(ctx, msg); err != nil {
		return nil, err
	}

	w.adoptCustomer(sc, registered)
	_ = w.bus.PublishJSON(events.EventCustomerRegistered, events.OrderEventPayload{
		CustomerID: registered.ID,
		Email:      registered.Email,
	})
	return nil, nil
}

func (w *Wizards) adoptCustomer(sc *dialog.StepContext, customer *models.Customer) {
	sc.Frame.Set(keyCustomerID, customer.ID)
	sc.Frame.Set(keyCustomerEmail, customer.Email)
	sc.Frame.Set(keyIsExisting, true)
}

func (w *Wizards) registrationFailed(sc *dialog.StepContext) (*dialog.Action, error) {
	msg := "Something went wrong!!\nWe were unable to register you, please try after sometime!!\nIf still doesn't work, please contact support"
	if err := sc.Out.SendText(sc.Context, msg); err != nil {
		return nil, err
	}
	end := dialog.End(nil)
	return &end, nil
}

func (w *Wizards) persistOrder(sc *dialog.StepContext, instructions string) (dialog.Action, error) {
	ctx := sc.Context
	sc.Frame.Set("instructions", instructions)

	order := &models.Order{
		CustomerID:         sc.Frame.GetInt64(keyCustomerID),
		OriginAddress:      sc.Frame.GetString(keyOriginAddress),
		DestinationAddress: sc.Frame.GetString(keyDestination),
		ItemType:           sc.Frame.GetString(keyItemType),
		ItemCount:          sc.Frame.GetInt64(keyItemCount),
		ItemTotalWeight:    sc.Frame.GetInt64(keyItemWeight),
		PickupWindow:       sc.Frame.GetTimeWindow(keyPickupWindow),
		Instructions:       instructions,
		ReceivingWindow:    sc.Frame.GetTimeWindow(keyReceivingWindow),
		CreatedAt:          time.Now(),
	}

	if err := w.store.InsertOrder(ctx, order); err != nil {
		w.logger.Error().Err(err).Int64("customer_id", order.CustomerID).Msg("order insert failed")
		msg := "Something went wrong!! (:\nWe were unable to process your request, please try after sometime!!\nIf still doesn't work, please contact support"
		if sendErr := sc.Out.SendText(ctx, msg); sendErr != nil {
			return dialog.Action{}, sendErr
		}
		return dialog.End(nil), nil
	}

	if err := sc.Out.SendText(ctx, "Your courier shipping item was successfully booked!"); err != nil {
		return dialog.Action{}, err
	}

	orderID, err := w.store.GetLastOrderID(ctx, order.CustomerID)
	if err != nil {
		w.logger.Error().Err(err).Int64("customer_id", order.CustomerID).Msg("last order lookup failed")
		orderID = order.ID
	}
	if err := sc.Out.SendText(ctx, fmt.Sprintf("Your courier shipping order number is: %d", orderID)); err != nil {
		return dialog.Action{}, err
	}

	metrics.IncOrderBooked()
	_ = w.bus.PublishJSON(events.EventOrderBooked, events.OrderEventPayload{
		OrderID:    orderID,
		CustomerID: order.CustomerID,
		ItemType:   order.ItemType,
		ItemCount:  order.ItemCount,
	})

	return dialog.End(nil), nil
}

func (w *Wizards) checkCourierStatus() *dialog.Dialog {
	return &dialog.Dialog{
		Name: models.DialogCheckStatus,
		Steps: []dialog.StepFunc{
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if err := sc.Out.SendText(sc.Context, "Sure, I can help you with that"); err != nil {
					return dialog.Action{}, err
				}
				return dialog.Prompt(models.PromptText, "Do you have an order number, you can also paste comma separated, multiple orders here"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				sc.Frame.Set(keyOrderIDs, sc.Result.(string))
				return dialog.Prompt(models.PromptText, "Great, What is your Customer ID"), nil
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				return w.lookupStatus(sc, sc.Result.(string))
			},
			func(sc *dialog.StepContext) (dialog.Action, error) {
				if choice, _ := sc.Result.(string); strings.EqualFold(choice, "Yes") {
					customerID := sc.Frame.GetInt64(keyCustomerID)
					lines := sc.Frame.GetStringSlice(keyStatusLines)
					if err := w.notifier.EnqueueStatusEmail(sc.Context, customerID, lines); err != nil {
						w.logger.Error().Err(err).Int64("customer_id", customerID).Msg("status email enqueue failed")
					}
					if err := sc.Out.SendText(sc.Context, "Email sent!, will keep you posted if there is any change in status at your email"); err != nil {
						return dialog.Action{}, err
					}
				}
				return dialog.End(nil), nil
			},
		},
	}
}

func (w *Wizards) lookupStatus(sc *dialog.StepContext, rawCustomerID string) (dialog.Action, error) {
	ctx := sc.Context

	if err := sc.Out.SendText(ctx, "Please wait.., we are fetching your order status"); err != nil {
		return dialog.Action{}, err
	}

	apologize := func() (dialog.Action, error) {
		if err := sc.Out.SendText(ctx, "Sorry!!, we don't find any order"); err != nil {
			return dialog.Action{}, err
		}
		return dialog.End(nil), nil
	}

	customerID, err := strconv.ParseInt(strings.TrimSpace(rawCustomerID), 10, 64)
	if err != nil {
		return apologize()
	}

	var orderIDs []string
	for _, raw := range strings.Split(sc.Frame.GetString(keyOrderIDs), ",") {
		if id := strings.TrimSpace(raw); id != "" {
			orderIDs = append(orderIDs, id)
		}
	}

	orders, err := w.store.GetOrdersByCustomerAndIDs(ctx, customerID, orderIDs)
	if err != nil {
		w.logger.Error().Err(err).Int64("customer_id", customerID).Msg("order status lookup failed")
		return apologize()
	}
	if len(orders) == 0 {
		return apologize()
	}

	if err := sc.Out.SendText(ctx, "Below is/are your orders"); err != nil {
		return dialog.Action{}, err
	}

	lines := make([]string, 0, len(orders))
	for _, order := range orders {
		line := w.narrator.Narrate(&order)
		if err := sc.Out.SendText(ctx, line); err != nil {
			return dialog.Action{}, err
		}
		lines = append(lines, line)
	}

	sc.Frame.Set(keyCustomerID, customerID)
	sc.Frame.Set(keyStatusLines, lines)

	metrics.IncStatusCheck()
	_ = w.bus.PublishJSON(events.EventStatusRequested, events.OrderEventPayload{
		CustomerID: customerID,
		OrderIDs:   orderIDs,
		MatchCount: len(orders),
	})

	return dialog.Prompt(models.PromptChoice, "Would you want this information emailed to you?", "Yes", "No"), nil
}
