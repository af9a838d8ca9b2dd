package materials

import (
	p "github.com/fieldops/fieldops/internal/platform/payload"
)

// Each canonical field is an ordered accessor list; the first accessor that
// yields a usable value wins. Key lookups are already case, separator and
// accent insensitive, so one spelling covers camelCase and snake_case.
// The canonical JSON key always comes first so mapped output maps to itself.

var (
	nameFields   = []string{"name", "nombre", "fullName", "nombreCompleto", "displayName", "label", "descripcion", "description"}
	lotFields    = []string{"number", "numero", "lotNumber", "numeroLote", "code", "codigo", "name", "nombre"}
	unitFields   = []string{"name", "nombre", "abreviatura", "abbreviation", "symbol", "simbolo", "code", "codigo"}
	statusCodes  = []string{"code", "codigo", "key", "clave", "value", "valor", "slug", "status", "estado"}
	statusLabels = []string{"label", "etiqueta", "name", "nombre", "descripcion", "description"}
)

// Request-level fields.
var (
	requestID = []p.Accessor{
		p.Key("id", "_id", "uuid", "requestId", "solicitudId", "idSolicitud"),
	}
	requestCode = []p.Accessor{
		p.Key("code", "codigo", "folio", "numero", "number", "requestCode", "codigoSolicitud"),
	}
	requestProjectID = []p.Accessor{
		p.Key("projectId", "proyectoId", "idProyecto", "obraId", "idObra"),
		p.Path("project", "id"),
		p.Path("proyecto", "id"),
		p.Path("obra", "id"),
	}
	requestProjectName = []p.Accessor{
		p.Key("projectName", "proyectoNombre", "nombreProyecto", "obraNombre", "nombreObra"),
		p.Ref("project", nameFields...),
		p.Ref("proyecto", nameFields...),
		p.Ref("obra", nameFields...),
	}
	requestRequester = []p.Accessor{
		p.Key("requesterName", "solicitanteNombre", "nombreSolicitante", "requestedByName", "createdByName"),
		p.Refs([]string{"requester", "solicitante", "requestedBy", "solicitadoPor", "createdBy", "user", "usuario"}, nameFields...),
	}
	requestDate = []p.Accessor{
		p.Key("requestDate", "fechaSolicitud", "fecha", "date", "createdAt", "fechaCreacion", "created"),
	}
	requestStatusCode = []p.Accessor{
		p.Key("status", "estado", "state", "estatus"),
	}
	requestStatusLabel = []p.Accessor{
		p.Key("statusLabel", "estadoLabel", "estadoTexto", "statusText", "estadoNombre", "statusName"),
	}
	requestPriority = []p.Accessor{
		p.Key("priority", "prioridad"),
	}
	requestUrgent = []p.Accessor{
		p.Key("urgent", "urgente", "isUrgent", "esUrgente"),
	}
	requestReason = []p.Accessor{
		p.Key("reason", "motivo", "justificacion", "justification", "razon", "purpose", "proposito"),
	}
	requestObservations = []p.Accessor{
		p.Key("observations", "observaciones", "observacion", "observation", "notes", "notas", "comments", "comentarios"),
	}
	requestProgress = []p.Accessor{
		p.Key("deliveryProgress", "progresoEntrega", "porcentajeEntrega", "progress", "progreso", "avance", "percentage", "porcentaje"),
	}
	requestTotalItems = []p.Accessor{
		p.Key("totalItems", "itemsCount", "cantidadItems", "totalMateriales", "numItems"),
	}
	requestTotalRequested = []p.Accessor{
		p.Key("totalRequestedQuantity", "totalSolicitado", "cantidadSolicitadaTotal", "totalQuantity", "cantidadTotal"),
	}
	requestTotalApproved = []p.Accessor{
		p.Key("totalApprovedQuantity", "totalAprobado", "cantidadAprobadaTotal"),
	}
	requestTotalDelivered = []p.Accessor{
		p.Key("totalDeliveredQuantity", "totalEntregado", "cantidadEntregadaTotal", "totalRecibido"),
	}
	requestMaterialName = []p.Accessor{
		p.Key("materialName", "nombreMaterial", "materialNombre"),
		p.Ref("material", nameFields...),
	}
	requestQuantity = []p.Accessor{
		p.Key("quantity", "qty", "cantidad", "cantidadSolicitada", "requestedQty"),
	}
	requestUnit = []p.Accessor{
		p.Key("unit", "unidadMedida", "uom"),
		p.Ref("unidad", unitFields...),
		p.Path("material", "unit"),
		p.Path("material", "unidad"),
	}
	requestItems = []p.Accessor{
		p.Key("items", "detalles", "detalle", "materiales", "materials", "lines", "lineas", "requestItems"),
	}
	requestDeliveries = []p.Accessor{
		p.Key("deliveries", "entregas", "deliveryHistory", "historialEntregas", "despachos"),
	}
	requestApprovedAt = []p.Accessor{
		p.Key("approvedAt", "fechaAprobacion", "aprobadoEn", "aprobadaEn"),
	}
	requestReceivedAt = []p.Accessor{
		p.Key("receivedAt", "fechaRecepcion", "recibidoEn", "recibidaEn", "deliveredAt", "fechaEntrega"),
	}
	requestRejectedAt = []p.Accessor{
		p.Key("rejectedAt", "fechaRechazo", "rechazadoEn", "rechazadaEn"),
	}
	requestUpdatedAt = []p.Accessor{
		p.Key("updatedAt", "fechaActualizacion", "modifiedAt", "actualizadoEn", "updated"),
	}
	requestWarehouse = []p.Accessor{
		p.Key("warehouseName", "almacenNombre", "nombreAlmacen", "bodegaNombre"),
		p.Refs([]string{"warehouse", "almacen", "bodega"}, nameFields...),
	}
)

// Item-level fields.
var (
	itemID = []p.Accessor{
		p.Key("id", "_id", "itemId", "detalleId", "idDetalle", "requestItemId", "lineId"),
	}
	itemMaterialID = []p.Accessor{
		p.Key("materialId", "idMaterial", "catalogItemId", "productoId", "insumoId"),
		p.Path("material", "id"),
		p.Path("material", "_id"),
		p.Path("producto", "id"),
		p.Path("insumo", "id"),
	}
	itemMaterialName = []p.Accessor{
		p.Key("materialName", "nombreMaterial", "materialNombre"),
		p.Refs([]string{"material", "producto", "insumo"}, nameFields...),
		p.Key("name", "nombre", "description", "descripcion"),
	}
	itemUnit = []p.Accessor{
		p.Key("unit", "unidadMedida", "uom"),
		p.Ref("unidad", unitFields...),
		p.Ref("unit", unitFields...),
		p.Path("material", "unit"),
		p.Path("material", "unidad"),
		p.Path("material", "unidad", "nombre"),
	}
	itemRequested = []p.Accessor{
		p.Key("requestedQty", "requestedQuantity", "cantidadSolicitada", "quantity", "qty", "cantidad"),
	}
	itemApproved = []p.Accessor{
		p.Key("approvedQty", "approvedQuantity", "cantidadAprobada", "aprobado"),
	}
	itemDelivered = []p.Accessor{
		p.Key("deliveredQty", "deliveredQuantity", "cantidadEntregada", "receivedQty", "cantidadRecibida", "entregado"),
	}
	itemDeliveries = []p.Accessor{
		p.Key("deliveries", "entregas", "deliveryHistory", "historialEntregas", "despachos"),
	}
)

// Lot reference fields shared by items and deliveries.
var (
	lotID = []p.Accessor{
		p.Key("lotId", "loteId", "idLote"),
		p.Path("lot", "id"),
		p.Path("lote", "id"),
	}
	lotNumber = []p.Accessor{
		p.Key("lotNumber", "numeroLote", "loteNumero", "lotCode", "codigoLote"),
		p.Ref("lot", lotFields...),
		p.Ref("lote", lotFields...),
	}
)

// Delivery-level fields.
var (
	deliveryID = []p.Accessor{
		p.Key("id", "_id", "deliveryId", "entregaId", "idEntrega", "despachoId"),
	}
	deliveryItemID = []p.Accessor{
		p.Key("requestItemId", "itemId", "detalleId", "idDetalle", "solicitudDetalleId", "lineId"),
		p.Path("item", "id"),
		p.Path("detalle", "id"),
	}
	deliveryQuantity = []p.Accessor{
		p.Key("quantity", "qty", "cantidad", "cantidadEntregada", "deliveredQty", "delivered"),
	}
	deliveryAt = []p.Accessor{
		p.Key("deliveredAt", "fechaEntrega", "entregadoEn", "fecha", "date", "createdAt", "fechaCreacion"),
	}
	deliveryBy = []p.Accessor{
		p.Key("deliveredByName", "entregadoPorNombre"),
		p.Refs([]string{"deliveredBy", "entregadoPor", "responsable", "user", "usuario", "createdBy"}, nameFields...),
	}
	deliveryObservations = requestObservations
)

// Catalog fields.
var (
	catalogID = []p.Accessor{
		p.Key("id", "_id", "materialId", "idMaterial", "catalogId", "uuid"),
	}
	catalogName = []p.Accessor{
		p.Key("name", "nombre", "materialName", "nombreMaterial"),
		p.Ref("material", nameFields...),
		p.Key("description", "descripcion"),
	}
	catalogUnit = itemUnit
	catalogSKU  = []p.Accessor{
		p.Key("sku"),
	}
	catalogCode = []p.Accessor{
		p.Key("code", "codigo", "clave", "codigoMaterial"),
	}
	catalogDescription = []p.Accessor{
		p.Key("description", "descripcion", "detalle"),
	}
	catalogBrand = []p.Accessor{
		p.Ref("brand", nameFields...),
		p.Ref("marca", nameFields...),
	}
	catalogModel = []p.Accessor{
		p.Key("model", "modelo"),
	}
)
