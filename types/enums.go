package types

import "fmt"

// ActionType classifies user actions. Numeric values follow the metrics
// wire schema and must not be renumbered.
type ActionType int

// Action types.
const (
	ActionUnknown        ActionType = 0
	ActionCustom         ActionType = 1
	ActionNavigate       ActionType = 2
	ActionPurchase       ActionType = 3
	ActionAddToCart      ActionType = 4
	ActionShare          ActionType = 5
	ActionLike           ActionType = 6
	ActionComment        ActionType = 7
	ActionCheckout       ActionType = 8
	ActionUnlike         ActionType = 9
	ActionRemoveFromCart ActionType = 10
	ActionMakeOffer      ActionType = 11
	ActionAskQuestion    ActionType = 12
	ActionAnswerQuestion ActionType = 13
	ActionCompleteSignIn ActionType = 14
	ActionCompleteSignUp ActionType = 15
)

var actionTypeNames = map[ActionType]string{
	ActionUnknown:        "unknown",
	ActionCustom:         "custom",
	ActionNavigate:       "navigate",
	ActionPurchase:       "purchase",
	ActionAddToCart:      "add_to_cart",
	ActionShare:          "share",
	ActionLike:           "like",
	ActionComment:        "comment",
	ActionCheckout:       "checkout",
	ActionUnlike:         "unlike",
	ActionRemoveFromCart: "remove_from_cart",
	ActionMakeOffer:      "make_offer",
	ActionAskQuestion:    "ask_question",
	ActionAnswerQuestion: "answer_question",
	ActionCompleteSignIn: "complete_sign_in",
	ActionCompleteSignUp: "complete_sign_up",
}

// String returns the snake_case name of the action type.
func (a ActionType) String() string {
	if name, ok := actionTypeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action_type(%d)", int(a))
}

// IsContentless reports whether actions of this type are inherently not
// tied to a piece of content (and so carry no joinable content fields).
func (a ActionType) IsContentless() bool {
	return a == ActionCheckout || a == ActionPurchase
}

// ImpressionSourceType records where the impressed content came from.
type ImpressionSourceType int

// Impression source types.
const (
	ImpressionSourceUnknown       ImpressionSourceType = 0
	ImpressionSourceDelivery      ImpressionSourceType = 1
	ImpressionSourceClientBackend ImpressionSourceType = 2
)

// String returns the snake_case name of the source type.
func (s ImpressionSourceType) String() string {
	switch s {
	case ImpressionSourceDelivery:
		return "delivery"
	case ImpressionSourceClientBackend:
		return "client_backend"
	default:
		return "unknown"
	}
}

// UseCase tags a view with the product surface it belongs to.
type UseCase int

// Use cases.
const (
	UseCaseUnknown           UseCase = 0
	UseCaseCustom            UseCase = 1
	UseCaseSearch            UseCase = 2
	UseCaseSearchSuggestions UseCase = 3
	UseCaseFeed              UseCase = 4
	UseCaseRelatedContent    UseCase = 5
	UseCaseCloseUp           UseCase = 6
	UseCaseCategoryContent   UseCase = 7
	UseCaseMyContent         UseCase = 8
	UseCaseMySavedContent    UseCase = 9
	UseCaseSellerContent     UseCase = 10
	UseCaseDiscover          UseCase = 11
)

// ClientType identifies the kind of client producing the log request.
type ClientType int

// Client types.
const (
	ClientTypeUnknown        ClientType = 0
	ClientTypePlatformServer ClientType = 1
	ClientTypePlatformClient ClientType = 2
)

// TrafficType distinguishes production from replayed or shadow traffic.
type TrafficType int

// Traffic types.
const (
	TrafficTypeUnknown    TrafficType = 0
	TrafficTypeProduction TrafficType = 1
	TrafficTypeReplay     TrafficType = 2
	TrafficTypeShadow     TrafficType = 4
)
