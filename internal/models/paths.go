package models

// Collection paths. Private copies live under users/{uid}/...
const (
	GlobalRequestsCollection = "globalProcurementRequests"
	GlobalOrdersCollection   = "globalOrders"
	ProfilesCollection       = "info"
	AccountsCollection       = "accounts"

	DealerRequestsGroup     = "procurementRequests"
	DealerOrdersGroup       = "orders"
	SupplierFulfilmentGroup = "orderFulfilment"
	SupplierOffersGroup     = "offers"
	InventoryGroup          = "inventory"
	InventoryHistoryGroup   = "inventoryHistory"
	NotificationsGroup      = "notifications"
)

func userPath(uid, group string) string { return "users/" + uid + "/" + group }

func DealerRequestsPath(uid string) string     { return userPath(uid, DealerRequestsGroup) }
func DealerOrdersPath(uid string) string       { return userPath(uid, DealerOrdersGroup) }
func SupplierFulfilmentPath(uid string) string { return userPath(uid, SupplierFulfilmentGroup) }
func SupplierOffersPath(uid string) string     { return userPath(uid, SupplierOffersGroup) }
func InventoryPath(uid string) string          { return userPath(uid, InventoryGroup) }
func InventoryHistoryPath(uid string) string   { return userPath(uid, InventoryHistoryGroup) }
func NotificationsPath(uid string) string      { return userPath(uid, NotificationsGroup) }

// AllGroups lists every physical collection the store touches.
var AllGroups = []string{
	GlobalRequestsCollection, GlobalOrdersCollection, ProfilesCollection, AccountsCollection,
	DealerRequestsGroup, DealerOrdersGroup, SupplierFulfilmentGroup, SupplierOffersGroup,
	InventoryGroup, InventoryHistoryGroup, NotificationsGroup,
}
