package bot

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"courierbot/internal/dialog"
	"courierbot/internal/events"
	"courierbot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockStore) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockStore) RegisterCustomer(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockStore) InsertOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockStore) GetLastOrderID(ctx context.Context, customerID int64) (int64, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetOrdersByCustomerAndIDs(ctx context.Context, customerID int64, orderIDs []string) ([]models.Order, error) {
	args := m.Called(ctx, customerID, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) EnqueueStatusEmail(ctx context.Context, customerID int64, lines []string) error {
	args := m.Called(ctx, customerID, lines)
	return args.Error(0)
}

// mapResolver resolves only the phrases it was primed with.
type mapResolver struct {
	phrases map[string][]models.TimeCandidate
}

func (r *mapResolver) Resolve(phrase string, _ time.Time) []models.TimeCandidate {
	return r.phrases[phrase]
}

type recordingResponder struct {
	texts   []string
	choices [][]string
}

func (r *recordingResponder) SendText(_ context.Context, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingResponder) SendChoices(_ context.Context, text string, choices []string) error {
	r.texts = append(r.texts, text)
	r.choices = append(r.choices, choices)
	return nil
}

func (r *recordingResponder) last() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

type wizardFixture struct {
	engine   *dialog.Engine
	store    *MockStore
	notifier *MockNotifier
	resolver *mapResolver
	state    *models.ConversationState
	out      *recordingResponder
	ctx      context.Context
}

func futureCandidate(value string, when time.Time) models.TimeCandidate {
	return models.TimeCandidate{
		Window: models.TimeWindow{Timex: value, Kind: models.WindowDateTime, Value: value},
		When:   when,
	}
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	logger := zerolog.Nop()

	store := &MockStore{}
	notifier := &MockNotifier{}
	resolver := &mapResolver{phrases: map[string][]models.TimeCandidate{}}
	narrator := NewNarrator(rand.New(rand.NewSource(1)), func() time.Time {
		return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	})

	engine := dialog.NewEngine(&logger)
	wizards := NewWizards(store, resolver, events.NewEventBus(), notifier, narrator, &logger)
	wizards.Register(engine)

	return &wizardFixture{
		engine:   engine,
		store:    store,
		notifier: notifier,
		resolver: resolver,
		state:    &models.ConversationState{ConversationID: "chat-1"},
		out:      &recordingResponder{},
		ctx:      context.Background(),
	}
}

func (f *wizardFixture) send(t *testing.T, input string) {
	t.Helper()
	handled, err := f.engine.ContinueDialog(f.ctx, f.state, f.out, input)
	require.NoError(t, err)
	require.True(t, handled)
}

func TestMainMenu_OffersBothOptions(t *testing.T) {
	f := newWizardFixture(t)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogMainMenu))
	assert.Equal(t, "What would you like to do?", f.out.last())
	require.Len(t, f.out.choices, 1)
	assert.Equal(t, []string{"Book a courier", "Check courier status"}, f.out.choices[0])
}

func TestMainMenu_RepromptsOnUnknownChoice(t *testing.T) {
	f := newWizardFixture(t)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogMainMenu))
	f.send(t, "make me a sandwich")

	// Corrective message followed by the menu again; still one frame deep.
	assert.Contains(t, f.out.texts, "Sorry, I didn't understand that. Please pick one of the options.")
	assert.Equal(t, "What would you like to do?", f.out.last())
	assert.Equal(t, 1, f.state.Depth())
}

func TestBookCourier_ExistingCustomerFullFlow(t *testing.T) {
	f := newWizardFixture(t)

	customer := &models.Customer{ID: 1001, Email: "a.b@domain.co"}
	f.store.On("GetCustomerByID", mock.Anything, int64(1001)).Return(customer, nil)
	f.store.On("InsertOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	f.store.On("GetLastOrderID", mock.Anything, int64(1001)).Return(int64(7), nil)

	pickup := futureCandidate("2024-03-11 09:00", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))
	receiveEarly := futureCandidate("2024-03-12 09:00", time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC))
	receiveLate := futureCandidate("2024-03-12 17:00", time.Date(2024, 3, 12, 17, 0, 0, 0, time.UTC))
	f.resolver.phrases["tomorrow at 9am"] = []models.TimeCandidate{pickup}
	f.resolver.phrases["tuesday 9am or 5pm"] = []models.TimeCandidate{receiveEarly, receiveLate}

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogMainMenu))
	f.send(t, "Book a courier")
	assert.Contains(t, f.out.texts, "Sure, I can help you with that.\nCan you please identify yourself?")
	assert.Equal(t, "Are you an existing customer?", f.out.last())

	f.send(t, "Yes")
	assert.Equal(t, "Great, what’s your Customer Number", f.out.last())

	f.send(t, "1001")
	assert.Equal(t, "What would be the Origin address?", f.out.last())

	f.send(t, "12 Dock Road")
	assert.Equal(t, "Do you have a pickup window?", f.out.last())

	f.send(t, "tomorrow at 9am")
	assert.Equal(t, "What would be the destination address? OR\nWhere would this be going", f.out.last())

	f.send(t, "90 Harbor Lane")
	assert.Equal(t, "Do you have a receiving window?", f.out.last())

	f.send(t, "tuesday 9am or 5pm")
	assert.Equal(t, "What are you shipping (pallets, carton)", f.out.last())

	f.send(t, "pallets")
	assert.Equal(t, "How many?", f.out.last())

	f.send(t, "3")
	assert.Equal(t, "What’s the total weight", f.out.last())

	f.send(t, "250")
	assert.Equal(t, "Any special instructions", f.out.last())

	f.send(t, "ring the bell")
	assert.Contains(t, f.out.texts, "Your courier shipping item was successfully booked!")
	assert.Contains(t, f.out.texts, "Your courier shipping order number is: 7")

	inserted := f.store.Calls[1].Arguments.Get(1).(*models.Order)
	assert.Equal(t, int64(1001), inserted.CustomerID)
	assert.Equal(t, "12 Dock Road", inserted.OriginAddress)
	assert.Equal(t, "90 Harbor Lane", inserted.DestinationAddress)
	assert.Equal(t, models.ItemTypePallets, inserted.ItemType)
	assert.Equal(t, int64(3), inserted.ItemCount)
	assert.Equal(t, int64(250), inserted.ItemTotalWeight)
	assert.Equal(t, "ring the bell", inserted.Instructions)
	// Earliest candidate for pickup, latest for receiving.
	assert.Equal(t, "2024-03-11 09:00", inserted.PickupWindow.Value)
	assert.Equal(t, "2024-03-12 17:00", inserted.ReceivingWindow.Value)

	// The booking ended; the menu looped back around.
	assert.Equal(t, "What would you like to do?", f.out.last())
	require.Equal(t, 1, f.state.Depth())
	assert.Equal(t, models.DialogMainMenu, f.state.Top().Dialog)

	f.store.AssertExpectations(t)
}

func TestBookCourier_NewCustomerFullFlow(t *testing.T) {
	f := newWizardFixture(t)

	registered := &models.Customer{ID: 1002, Email: "new@x.com"}
	f.store.On("GetCustomerByEmail", mock.Anything, "new@x.com").Return(nil, nil).Once()
	f.store.On("RegisterCustomer", mock.Anything, "new@x.com").Return(nil)
	f.store.On("GetCustomerByEmail", mock.Anything, "new@x.com").Return(registered, nil)
	f.store.On("InsertOrder", mock.Anything, mock.AnythingOfType("*models.Order")).Return(nil)
	f.store.On("GetLastOrderID", mock.Anything, int64(1002)).Return(int64(11), nil)

	f.resolver.phrases["tomorrow 9am"] = []models.TimeCandidate{
		futureCandidate("2024-03-11 09:00", time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)),
	}
	f.resolver.phrases["tomorrow 5pm"] = []models.TimeCandidate{
		futureCandidate("2024-03-11 17:00", time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)),
	}

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogBookCourier))
	f.send(t, "No")
	assert.Equal(t, "Can you confirm your email address?", f.out.last())

	f.send(t, "new@x.com")
	assert.Contains(t, f.out.texts, "We are registering you, Please wait..")
	assert.Contains(t, f.out.texts, "Your registration was successfull with us, your customer number is : 1002")
	assert.Equal(t, "What would be the Origin address?", f.out.last())

	f.send(t, "A St")
	f.send(t, "tomorrow 9am")
	f.send(t, "B St")
	f.send(t, "tomorrow 5pm")
	f.send(t, "pallets")
	f.send(t, "3")
	f.send(t, "50")
	f.send(t, "none")

	assert.Contains(t, f.out.texts, "Your courier shipping item was successfully booked!")
	assert.Contains(t, f.out.texts, "Your courier shipping order number is: 11")

	var inserted *models.Order
	for _, call := range f.store.Calls {
		if call.Method == "InsertOrder" {
			inserted = call.Arguments.Get(1).(*models.Order)
		}
	}
	require.NotNil(t, inserted)
	assert.Equal(t, int64(1002), inserted.CustomerID)
	assert.Equal(t, models.ItemTypePallets, inserted.ItemType)
	assert.Equal(t, int64(3), inserted.ItemCount)
	assert.Equal(t, int64(50), inserted.ItemTotalWeight)
	assert.Equal(t, "none", inserted.Instructions)

	f.store.AssertExpectations(t)
}

func TestBookCourier_AlreadyRegisteredEmail(t *testing.T) {
	f := newWizardFixture(t)

	existing := &models.Customer{ID: 1003, Email: "known@example.com"}
	f.store.On("GetCustomerByEmail", mock.Anything, "known@example.com").Return(existing, nil)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogBookCourier))
	f.send(t, "No")
	f.send(t, "known@example.com")

	assert.Contains(t, f.out.texts,
		"This Email address is already registered with us,\n for your future reference customer number associated with this email address is : 1003")
	assert.Equal(t, "What would be the Origin address?", f.out.last())
	f.store.AssertExpectations(t)
}

func TestBookCourier_RegistrationFailureEndsDialog(t *testing.T) {
	f := newWizardFixture(t)

	f.store.On("GetCustomerByEmail", mock.Anything, "new@example.com").Return(nil, nil)
	f.store.On("RegisterCustomer", mock.Anything, "new@example.com").Return(errors.New("disk full"))

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogBookCourier))
	f.send(t, "No")
	f.send(t, "new@example.com")

	assert.Contains(t, f.out.last(), "We were unable to register you")
	assert.Equal(t, 0, f.state.Depth())
}

func TestBookCourier_RejectsUnknownCustomerNumber(t *testing.T) {
	f := newWizardFixture(t)

	f.store.On("GetCustomerByID", mock.Anything, int64(5000)).Return(nil, nil)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogBookCourier))
	f.send(t, "Yes")
	f.send(t, "5000")

	assert.Contains(t, f.out.texts, "Customer Number doesn't exist. Please provide a valid Customer Number.")
	// Still waiting on the same prompt.
	assert.Equal(t, "Great, what’s your Customer Number", f.out.last())
	require.NotNil(t, f.state.Top().Pending)
}

func TestCheckStatus_FullFlowWithEmail(t *testing.T) {
	f := newWizardFixture(t)

	order := models.Order{
		ID:                 5,
		CustomerID:         1001,
		OriginAddress:      "12 Dock Road",
		DestinationAddress: "90 Harbor Lane",
		PickupWindow:       models.TimeWindow{Kind: models.WindowDateTime, Value: "2024-03-11 09:00"},
		ReceivingWindow:    models.TimeWindow{Kind: models.WindowDateTime, Value: "2024-03-11 17:00"},
	}
	f.store.On("GetOrdersByCustomerAndIDs", mock.Anything, int64(1001), []string{"5", "7"}).
		Return([]models.Order{order}, nil)
	f.notifier.On("EnqueueStatusEmail", mock.Anything, int64(1001), mock.AnythingOfType("[]string")).Return(nil)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogCheckStatus))
	assert.Contains(t, f.out.texts, "Sure, I can help you with that")
	assert.Equal(t, "Do you have an order number, you can also paste comma separated, multiple orders here", f.out.last())

	f.send(t, "5, 7")
	assert.Equal(t, "Great, What is your Customer ID", f.out.last())

	f.send(t, "1001")
	assert.Contains(t, f.out.texts, "Please wait.., we are fetching your order status")
	assert.Contains(t, f.out.texts, "Below is/are your orders")
	assert.Equal(t, "Would you want this information emailed to you?", f.out.last())

	var narrated bool
	for _, text := range f.out.texts {
		if strings.HasPrefix(text, "Your Order from 12 Dock Road to 90 Harbor Lane") {
			narrated = true
		}
	}
	assert.True(t, narrated)

	f.send(t, "Yes")
	assert.Contains(t, f.out.texts, "Email sent!, will keep you posted if there is any change in status at your email")
	assert.Equal(t, 0, f.state.Depth())

	f.store.AssertExpectations(t)
	f.notifier.AssertExpectations(t)

	lines := f.notifier.Calls[0].Arguments.Get(2).([]string)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Your Order from 12 Dock Road to 90 Harbor Lane")
}

func TestCheckStatus_DeclineEmail(t *testing.T) {
	f := newWizardFixture(t)

	order := models.Order{
		ID:                 5,
		CustomerID:         1001,
		OriginAddress:      "A",
		DestinationAddress: "B",
		PickupWindow:       models.TimeWindow{Kind: models.WindowDateTime, Value: "2024-03-11 09:00"},
		ReceivingWindow:    models.TimeWindow{Kind: models.WindowDateTime, Value: "2024-03-11 17:00"},
	}
	f.store.On("GetOrdersByCustomerAndIDs", mock.Anything, int64(1001), []string{"5"}).
		Return([]models.Order{order}, nil)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogCheckStatus))
	f.send(t, "5")
	f.send(t, "1001")
	f.send(t, "No")

	assert.NotContains(t, f.out.texts, "Email sent!, will keep you posted if there is any change in status at your email")
	assert.Equal(t, 0, f.state.Depth())
	f.notifier.AssertNotCalled(t, "EnqueueStatusEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckStatus_NoOrdersFound(t *testing.T) {
	f := newWizardFixture(t)

	f.store.On("GetOrdersByCustomerAndIDs", mock.Anything, int64(1001), []string{"99"}).
		Return(nil, nil)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogCheckStatus))
	f.send(t, "99")
	f.send(t, "1001")

	assert.Equal(t, "Sorry!!, we don't find any order", f.out.last())
	assert.Equal(t, 0, f.state.Depth())
}

func TestCheckStatus_BadCustomerID(t *testing.T) {
	f := newWizardFixture(t)

	require.NoError(t, f.engine.BeginDialog(f.ctx, f.state, f.out, models.DialogCheckStatus))
	f.send(t, "5")
	f.send(t, "not a number")

	assert.Equal(t, "Sorry!!, we don't find any order", f.out.last())
	assert.Equal(t, 0, f.state.Depth())
}
