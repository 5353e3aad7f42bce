package ledgerhttp

import (
	"net/http"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/platform/httpx"
	"github.com/facturier/facturier/internal/shared"
)

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	var matched []billing.Client
	for _, c := range h.ledger.Clients() {
		if term == "" || containsFold(c.Name, term) || containsFold(c.Category, term) || containsFold(c.Region, term) {
			matched = append(matched, c)
		}
	}
	page := shared.ParsePagination(q.Get("page"), q.Get("limit"), len(matched))
	rows := make([]clientRow, 0, page.PerPage)
	for _, c := range shared.Page(matched, page) {
		rows = append(rows, clientRow{Client: c, Debt: h.ledger.ClientDebt(c.ID)})
	}
	httpx.JSON(w, http.StatusOK, listResponse[clientRow]{Data: rows, Pagination: page})
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.ledger.CreateClient(r.Context(), req.input())
	if err != nil {
		h.fail(w, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, clientRow{Client: c, Debt: h.ledger.ClientDebt(c.ID)})
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.ledger.Client(urlID(r))
	if err != nil {
		h.fail(w, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, clientRow{Client: c, Debt: h.ledger.ClientDebt(c.ID)})
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.ledger.UpdateClient(r.Context(), urlID(r), req.input())
	if err != nil {
		h.fail(w, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, clientRow{Client: c, Debt: h.ledger.ClientDebt(c.ID)})
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if err := h.ledger.DeleteClient(r.Context(), urlID(r)); err != nil {
		h.fail(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clientStatement(w http.ResponseWriter, r *http.Request) {
	st, err := h.ledger.ClientStatement(urlID(r))
	if err != nil {
		h.fail(w, "client statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	var matched []billing.Product
	for _, p := range h.ledger.Products() {
		if term == "" || containsFold(p.Name, term) || containsFold(p.NameAlt, term) {
			matched = append(matched, p)
		}
	}
	page := shared.ParsePagination(q.Get("page"), q.Get("limit"), len(matched))
	rows := append([]billing.Product{}, shared.Page(matched, page)...)
	httpx.JSON(w, http.StatusOK, listResponse[billing.Product]{Data: rows, Pagination: page})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.ledger.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.Product(urlID(r))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.ledger.UpdateProduct(r.Context(), urlID(r), req.input())
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if err := h.ledger.DeleteProduct(r.Context(), urlID(r)); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.ledger.Inventory())
}
