package ledger

import "fmt"

// Account is an interned journal account label. Labels follow the blue
// return statement line items, so they double as statement keys.
type Account string

const (
	AccountSales            Account = "売上高"
	AccountCash             Account = "現金"
	AccountDeposits         Account = "普通預金"
	AccountReceivable       Account = "売掛金"
	AccountAccruedIncome    Account = "未収金"
	AccountPayable          Account = "未払金"
	AccountOwnerBorrowings  Account = "事業主借"
	AccountOwnerDrawings    Account = "事業主貸"
	AccountCommissionFee    Account = "支払手数料"
	AccountShipping         Account = "荷造運賃"
	AccountPurchases        Account = "仕入高"
	AccountDepreciation     Account = "減価償却費"
	AccountFixedAssets      Account = "工具器具備品"
	AccountDisposalLoss     Account = "固定資産除却損"
	AccountMerchandise      Account = "商品"
	AccountSupplies         Account = "貯蔵品"
	AccountClosingInventory Account = "期末商品棚卸高"
	AccountSuppliesExpense  Account = "消耗品費"
)

// Category labels that carry business rules of their own.
const (
	CategoryUtilities        = "水道光熱費"
	CategoryCommissionFee    = "支払手数料"
	CategoryShipping         = "荷造運賃"
	CategoryPurchases        = "仕入高"
	CategorySales            = "売上高"
	CategoryHouseConsumption = "家事消費"
	CategoryMiscIncome       = "雑収入"
	CategoryOwnerBorrowings  = "事業主借"
	CategoryOwnerDrawings    = "事業主貸"
	CategoryDepreciation     = "減価償却費"
	CategoryDisposalLoss     = "固定資産除却損"
)

// Payment sources understood by the auto-mapping rules.
const (
	SourcePlatformA   = "platformA" // card-processor settlement, 3.6% fee
	SourcePlatformB   = "platformB" // auction marketplace, 10% fee
	SourceBank        = "bank"
	SourceCash        = "cash"
	SourceCard        = "card"
	SourcePrivateCard = "private_card"
	SourceAdjustment  = "adjustment"
)

// platformReceivable returns the per-platform receivable account.
func platformReceivable(source string) Account {
	return Account(fmt.Sprintf("%s(%s)", AccountReceivable, source))
}

// mapAccounts derives the debit/credit pair for a parent entry.
func mapAccounts(typ EntryType, category, source string, husbandPaid bool) (debit, credit Account) {
	switch typ {
	case EntryIncome:
		credit = AccountSales
		switch source {
		case SourcePlatformA, SourcePlatformB:
			debit = platformReceivable(source)
		case SourceBank:
			debit = AccountDeposits
		case SourceCash:
			debit = AccountCash
		default:
			debit = AccountAccruedIncome
		}
	case EntryExpense:
		debit = Account(category)
		switch {
		case husbandPaid:
			credit = AccountOwnerBorrowings
		case source == SourceCash:
			credit = AccountCash
		case source == SourceBank:
			credit = AccountDeposits
		case source == SourceCard, source == SourcePlatformA:
			credit = AccountPayable
		default:
			credit = AccountCash
		}
	}
	return debit, credit
}

// childCredit returns the account a derived fee/shipping row credits,
// netting down whatever the parent debited.
func childCredit(source string) Account {
	switch source {
	case SourcePlatformA, SourcePlatformB:
		return platformReceivable(source)
	case SourceBank:
		return AccountDeposits
	default:
		return AccountReceivable
	}
}
