package decoder

// XRPL serialized type codes
const (
	stUInt16    = 1
	stUInt32    = 2
	stUInt64    = 3
	stHash128   = 4
	stHash256   = 5
	stAmount    = 6
	stBlob      = 7
	stAccountID = 8
	stObject    = 14
	stArray     = 15
	stUInt8     = 16
	stHash160   = 17
	stPathSet   = 18
	stVector256 = 19
)

type xrpFieldID struct {
	typ int
	nth int
}

var (
	xrpObjectEnd = xrpFieldID{stObject, 1}
	xrpArrayEnd  = xrpFieldID{stArray, 1}
)

var xrpFieldNames = map[xrpFieldID]string{
	{stUInt16, 1}: "LedgerEntryType",
	{stUInt16, 2}: "TransactionType",
	{stUInt16, 3}: "SignerWeight",
	{stUInt16, 4}: "TransferFee",

	{stUInt32, 2}:  "Flags",
	{stUInt32, 3}:  "SourceTag",
	{stUInt32, 4}:  "Sequence",
	{stUInt32, 5}:  "PreviousTxnLgrSeq",
	{stUInt32, 6}:  "LedgerSequence",
	{stUInt32, 7}:  "CloseTime",
	{stUInt32, 8}:  "ParentCloseTime",
	{stUInt32, 9}:  "SigningTime",
	{stUInt32, 10}: "Expiration",
	{stUInt32, 11}: "TransferRate",
	{stUInt32, 12}: "WalletSize",
	{stUInt32, 13}: "OwnerCount",
	{stUInt32, 14}: "DestinationTag",
	{stUInt32, 16}: "HighQualityIn",
	{stUInt32, 17}: "HighQualityOut",
	{stUInt32, 18}: "LowQualityIn",
	{stUInt32, 19}: "LowQualityOut",
	{stUInt32, 20}: "QualityIn",
	{stUInt32, 21}: "QualityOut",
	{stUInt32, 22}: "StampEscrow",
	{stUInt32, 23}: "BondAmount",
	{stUInt32, 24}: "LoadFee",
	{stUInt32, 25}: "OfferSequence",
	{stUInt32, 26}: "FirstLedgerSequence",
	{stUInt32, 27}: "LastLedgerSequence",
	{stUInt32, 28}: "TransactionIndex",
	{stUInt32, 29}: "OperationLimit",
	{stUInt32, 30}: "ReferenceFeeUnits",
	{stUInt32, 31}: "ReserveBase",
	{stUInt32, 32}: "ReserveIncrement",
	{stUInt32, 33}: "SetFlag",
	{stUInt32, 34}: "ClearFlag",
	{stUInt32, 35}: "SignerQuorum",
	{stUInt32, 36}: "CancelAfter",
	{stUInt32, 37}: "FinishAfter",
	{stUInt32, 38}: "SignerListID",
	{stUInt32, 39}: "SettleDelay",
	{stUInt32, 40}: "TicketCount",
	{stUInt32, 41}: "TicketSequence",

	{stUInt64, 1}: "IndexNext",
	{stUInt64, 2}: "IndexPrevious",
	{stUInt64, 3}: "BookNode",
	{stUInt64, 4}: "OwnerNode",
	{stUInt64, 5}: "BaseFee",
	{stUInt64, 6}: "ExchangeRate",
	{stUInt64, 7}: "LowNode",
	{stUInt64, 8}: "HighNode",

	{stHash128, 1}: "EmailHash",

	{stHash256, 1}:  "LedgerHash",
	{stHash256, 2}:  "ParentHash",
	{stHash256, 3}:  "TransactionHash",
	{stHash256, 4}:  "AccountHash",
	{stHash256, 5}:  "PreviousTxnID",
	{stHash256, 6}:  "LedgerIndex",
	{stHash256, 7}:  "WalletLocator",
	{stHash256, 8}:  "RootIndex",
	{stHash256, 9}:  "AccountTxnID",
	{stHash256, 16}: "BookDirectory",
	{stHash256, 17}: "InvoiceID",
	{stHash256, 18}: "Nickname",
	{stHash256, 19}: "Amendment",
	{stHash256, 20}: "TicketID",
	{stHash256, 21}: "Digest",
	{stHash256, 22}: "Channel",
	{stHash256, 23}: "ConsensusHash",
	{stHash256, 24}: "CheckID",

	{stAmount, 1}:  "Amount",
	{stAmount, 2}:  "Balance",
	{stAmount, 3}:  "LimitAmount",
	{stAmount, 4}:  "TakerPays",
	{stAmount, 5}:  "TakerGets",
	{stAmount, 6}:  "LowLimit",
	{stAmount, 7}:  "HighLimit",
	{stAmount, 8}:  "Fee",
	{stAmount, 9}:  "SendMax",
	{stAmount, 10}: "DeliverMin",
	{stAmount, 16}: "MinimumOffer",
	{stAmount, 17}: "RippleEscrow",
	{stAmount, 18}: "DeliveredAmount",

	{stBlob, 1}:  "PublicKey",
	{stBlob, 2}:  "MessageKey",
	{stBlob, 3}:  "SigningPubKey",
	{stBlob, 4}:  "TxnSignature",
	{stBlob, 6}:  "Signature",
	{stBlob, 7}:  "Domain",
	{stBlob, 8}:  "FundCode",
	{stBlob, 9}:  "RemoveCode",
	{stBlob, 10}: "ExpireCode",
	{stBlob, 11}: "CreateCode",
	{stBlob, 12}: "MemoType",
	{stBlob, 13}: "MemoData",
	{stBlob, 14}: "MemoFormat",
	{stBlob, 16}: "Fulfillment",
	{stBlob, 17}: "Condition",
	{stBlob, 18}: "MasterSignature",

	{stAccountID, 1}: "Account",
	{stAccountID, 2}: "Owner",
	{stAccountID, 3}: "Destination",
	{stAccountID, 4}: "Issuer",
	{stAccountID, 5}: "Authorize",
	{stAccountID, 6}: "Unauthorize",
	{stAccountID, 7}: "Target",
	{stAccountID, 8}: "RegularKey",

	{stObject, 2}:  "TransactionMetaData",
	{stObject, 3}:  "CreatedNode",
	{stObject, 4}:  "DeletedNode",
	{stObject, 5}:  "ModifiedNode",
	{stObject, 6}:  "PreviousFields",
	{stObject, 7}:  "FinalFields",
	{stObject, 8}:  "NewFields",
	{stObject, 9}:  "TemplateEntry",
	{stObject, 10}: "Memo",
	{stObject, 11}: "SignerEntry",
	{stObject, 16}: "Signer",
	{stObject, 18}: "Majority",

	{stArray, 3}:  "Signers",
	{stArray, 4}:  "SignerEntries",
	{stArray, 5}:  "Template",
	{stArray, 6}:  "Necessary",
	{stArray, 7}:  "Sufficient",
	{stArray, 8}:  "AffectedNodes",
	{stArray, 9}:  "Memos",
	{stArray, 16}: "Majorities",

	{stUInt8, 1}:  "CloseResolution",
	{stUInt8, 2}:  "Method",
	{stUInt8, 3}:  "TransactionResult",
	{stUInt8, 16}: "TickSize",

	{stHash160, 1}: "TakerPaysCurrency",
	{stHash160, 2}: "TakerPaysIssuer",
	{stHash160, 3}: "TakerGetsCurrency",
	{stHash160, 4}: "TakerGetsIssuer",

	{stPathSet, 1}: "Paths",

	{stVector256, 1}: "Indexes",
	{stVector256, 2}: "Hashes",
	{stVector256, 3}: "Amendments",
}

var xrpTransactionTypes = map[uint16]string{
	0:  "Payment",
	1:  "EscrowCreate",
	2:  "EscrowFinish",
	3:  "AccountSet",
	4:  "EscrowCancel",
	5:  "SetRegularKey",
	6:  "NickNameSet",
	7:  "OfferCreate",
	8:  "OfferCancel",
	10: "TicketCreate",
	12: "SignerListSet",
	13: "PaymentChannelCreate",
	14: "PaymentChannelFund",
	15: "PaymentChannelClaim",
	16: "CheckCreate",
	17: "CheckCash",
	18: "CheckCancel",
	19: "DepositPreauth",
	20: "TrustSet",
	21: "AccountDelete",
}

func xrpFieldName(id xrpFieldID) string {
	if name, ok := xrpFieldNames[id]; ok {
		return name
	}
	return fieldPlaceholder(id)
}
