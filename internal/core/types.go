package core

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentFormat identifies how the product document is encoded in the envelope.
type DocumentFormat string

const (
	DocumentFormatManual DocumentFormat = "MANUAL"
	DocumentFormatXML    DocumentFormat = "XML"
	DocumentFormatCSV    DocumentFormat = "CSV"
)

// ProductGroup is the commodity group a document belongs to.
type ProductGroup string

const (
	ProductGroupClothes     ProductGroup = "CLOTHES"
	ProductGroupShoes       ProductGroup = "SHOES"
	ProductGroupTobacco     ProductGroup = "TOBACCO"
	ProductGroupPerfumery   ProductGroup = "PERFUMERY"
	ProductGroupTires       ProductGroup = "TIRES"
	ProductGroupElectronics ProductGroup = "ELECTRONICS"
	ProductGroupPharma      ProductGroup = "PHARMA"
	ProductGroupMilk        ProductGroup = "MILK"
	ProductGroupBicycle     ProductGroup = "BICYCLE"
	ProductGroupWheelchairs ProductGroup = "WHEELCHAIRS"
)

// DocumentType is the registry document kind.
type DocumentType string

const (
	DocumentTypeAggregation               DocumentType = "AGGREGATION_DOCUMENT"
	DocumentTypeDisaggregation            DocumentType = "DISAGGREGATION_DOCUMENT"
	DocumentTypeReaggregation             DocumentType = "REAGGREGATION_DOCUMENT"
	DocumentTypeIntroduceGoods            DocumentType = "LP_INTRODUCE_GOODS"
	DocumentTypeShipGoods                 DocumentType = "LP_SHIP_GOODS"
	DocumentTypeAcceptGoods               DocumentType = "LP_ACCEPT_GOODS"
	DocumentTypeRemark                    DocumentType = "LK_REMARK"
	DocumentTypeReceipt                   DocumentType = "LK_RECEIPT"
	DocumentTypeGoodsImport               DocumentType = "LP_GOODS_IMPORT"
	DocumentTypeCancelShipment            DocumentType = "LP_CANCEL_SHIPMENT"
	DocumentTypeKMCancellation            DocumentType = "LK_KM_CANCELLATION"
	DocumentTypeAppliedKMCancellation     DocumentType = "LK_APPLIED_KM_CANCELLATION"
	DocumentTypeContractCommissioning     DocumentType = "LK_CONTRACT_COMMISSIONING"
	DocumentTypeIndiCommissioning         DocumentType = "LK_INDI_COMMISSIONING"
	DocumentTypeShipReceipt               DocumentType = "LP_SHIP_RECEIPT"
	DocumentTypeOSTDescription            DocumentType = "OST_DESCRIPTION"
	DocumentTypeCrossborder               DocumentType = "CROSSBORDER"
	DocumentTypeIntroduceOST              DocumentType = "LP_INTRODUCE_OST"
	DocumentTypeReturn                    DocumentType = "LP_RETURN"
	DocumentTypeShipGoodsCrossborder      DocumentType = "LP_SHIP_GOODS_CROSSBORDER"
	DocumentTypeCancelShipmentCrossborder DocumentType = "LP_CANCEL_SHIPMENT_CROSSBORDER"
)

// DocumentTypes lists every document type in catalog order.
var DocumentTypes = []DocumentType{
	DocumentTypeAggregation,
	DocumentTypeDisaggregation,
	DocumentTypeReaggregation,
	DocumentTypeIntroduceGoods,
	DocumentTypeShipGoods,
	DocumentTypeAcceptGoods,
	DocumentTypeRemark,
	DocumentTypeReceipt,
	DocumentTypeGoodsImport,
	DocumentTypeCancelShipment,
	DocumentTypeKMCancellation,
	DocumentTypeAppliedKMCancellation,
	DocumentTypeContractCommissioning,
	DocumentTypeIndiCommissioning,
	DocumentTypeShipReceipt,
	DocumentTypeOSTDescription,
	DocumentTypeCrossborder,
	DocumentTypeIntroduceOST,
	DocumentTypeReturn,
	DocumentTypeShipGoodsCrossborder,
	DocumentTypeCancelShipmentCrossborder,
}

// ProductionType describes who manufactured the goods.
type ProductionType string

const (
	ProductionTypeOwn      ProductionType = "OWN_PRODUCTION"
	ProductionTypeContract ProductionType = "CONTRACT_PRODUCTION"
)

// CertificateDocument is the kind of conformity paperwork attached to a product.
type CertificateDocument string

const (
	CertificateConformity  CertificateDocument = "CONFORMITY_CERTIFICATE"
	CertificateDeclaration CertificateDocument = "CONFORMITY_DECLARATION"
)

// Description carries the participant the document is filed for.
type Description struct {
	ParticipantInn string `json:"participantInn"`
}

// Product is a single marked item listed in a document.
type Product struct {
	CertificateDocument       CertificateDocument `json:"certificateDocument,omitempty"`
	CertificateDocumentDate   *Date               `json:"certificateDocumentDate,omitempty"`
	CertificateDocumentNumber string              `json:"certificateDocumentNumber,omitempty"`
	OwnerInn                  string              `json:"ownerInn"`
	ProducerInn               string              `json:"producerInn"`
	ProductionDate            *Date               `json:"productionDate,omitempty"`
	TnvedCode                 string              `json:"tnvedCode"`
	UitCode                   string              `json:"uitCode,omitempty"`
	UituCode                  string              `json:"uituCode,omitempty"`
}

// ProductDocument is the payload registered with the registry.
type ProductDocument struct {
	Description    *Description   `json:"description,omitempty"`
	DocID          string         `json:"docId"`
	DocStatus      string         `json:"docStatus"`
	DocType        DocumentType   `json:"docType"`
	ImportRequest  *bool          `json:"importRequest,omitempty"`
	OwnerInn       string         `json:"ownerInn"`
	ParticipantInn string         `json:"participantInn"`
	ProducerInn    string         `json:"producerInn"`
	ProductionDate *Date          `json:"productionDate,omitempty"`
	ProductionType ProductionType `json:"productionType,omitempty"`
	Products       []Product      `json:"products,omitempty"`
	RegDate        *Date          `json:"regDate,omitempty"`
	RegNumber      string         `json:"regNumber,omitempty"`
}

// SubmissionRequest is everything needed to create one registry document.
type SubmissionRequest struct {
	Document  ProductDocument
	Group     *ProductGroup
	Signature string
	Type      DocumentType
}

// NewSubmissionRequest builds a request. A nil group omits the group code on the wire.
func NewSubmissionRequest(document ProductDocument, group *ProductGroup, signature string, docType DocumentType) SubmissionRequest {
	var g *ProductGroup
	if group != nil {
		value := *group
		g = &value
	}
	return SubmissionRequest{
		Document:  document,
		Group:     g,
		Signature: signature,
		Type:      docType,
	}
}

// Validate checks the closed enumerations and required fields.
func (r SubmissionRequest) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("unknown document type %q", r.Type)
	}
	if r.Group != nil && !r.Group.Valid() {
		return fmt.Errorf("unknown product group %q", *r.Group)
	}
	if strings.TrimSpace(r.Signature) == "" {
		return errors.New("signature is required")
	}
	return nil
}

// Valid reports whether t is one of the catalog document types.
func (t DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseDocumentType normalizes user input such as "lp_introduce_goods".
func ParseDocumentType(value string) (DocumentType, error) {
	normalized := DocumentType(normalizeEnum(value))
	if !normalized.Valid() {
		return "", fmt.Errorf("unknown document type: %s", value)
	}
	return normalized, nil
}

// Valid reports whether f is a known document format.
func (f DocumentFormat) Valid() bool {
	switch f {
	case DocumentFormatManual, DocumentFormatXML, DocumentFormatCSV:
		return true
	default:
		return false
	}
}

func normalizeEnum(value string) string {
	clean := strings.ToUpper(strings.TrimSpace(value))
	return strings.ReplaceAll(clean, "-", "_")
}
